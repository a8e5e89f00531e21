package domain

import "context"

// Artifact é a cópia efêmera do CSR em disco, de posse exclusiva de uma requisição.
//
// Release remove o arquivo. Pode ser chamado mais de uma vez; só a primeira chamada
// tem efeito.
type Artifact interface {
	Path() string
	Release() error
}

// ArtifactStore cria artefatos com caminho único por requisição.
type ArtifactStore interface {
	Acquire(data []byte) (Artifact, error)
}

// Signer é a fronteira com a autoridade externa: (propósito, caminho) -> resultado.
//
// Exit code diferente de zero não é erro aqui; erro é só quando não deu para rodar
// (SpawnError), estourou o tempo (ErrSignerTimeout) ou o ctx foi cancelado.
type Signer interface {
	Invoke(ctx context.Context, purpose Purpose, artifactPath string) (SignerResult, error)
}
