package domain

import "strings"

// Classify decide o propósito da assinatura.
//
// sign/auth explícitos são usados direto. Em auto, o nome do arquivo decide:
// contém "sign" => PurposeSign, senão PurposeAuth. O nome vem do cliente, então isso
// só escolhe o perfil pedido ao signer; a política de verdade fica no signer.
func Classify(declared DeclaredType, filename string) Purpose {
	switch declared {
	case DeclaredSign:
		return PurposeSign
	case DeclaredAuth:
		return PurposeAuth
	}
	if strings.Contains(filename, "sign") {
		return PurposeSign
	}
	return PurposeAuth
}
