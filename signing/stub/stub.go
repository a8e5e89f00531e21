// Package stub é um signer de desenvolvimento que respeita o contrato de processo do
// sign_req.sh: "<sign|auth> <arquivo>", certificado PEM no stdout e exit 0, ou
// diagnóstico no stderr e exit != 0.
//
// Cada execução gera uma CA efêmera. Não use em produção.
package stub

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2

	pemCSR  = "CERTIFICATE REQUEST"
	pemCert = "CERTIFICATE"

	Lifespan = 365 * 24 * time.Hour
)

var ErrNoCSR = errors.New("bad request: no CERTIFICATE REQUEST block found")

// Authority assina CSRs com uma chave ECDSA P-256 em memória.
type Authority struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	now  func() time.Time
}

func NewAuthority() (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ca key: %w", err)
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	issueAt := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "csr-gateway stub CA"},
		NotBefore:             issueAt.Add(-time.Minute),
		NotAfter:              issueAt.Add(Lifespan),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("self-sign ca: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Authority{cert: cert, key: key, now: time.Now}, nil
}

func (a *Authority) Certificate() *x509.Certificate { return a.cert }

// Issue assina o primeiro bloco CERTIFICATE REQUEST de csrPEM com o perfil do purpose
// e devolve o certificado em PEM.
func (a *Authority) Issue(purpose string, csrPEM []byte) ([]byte, error) {
	csr, err := parseCSR(csrPEM)
	if err != nil {
		return nil, err
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("bad request: csr signature: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	issueAt := a.now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		DNSNames:              csr.DNSNames,
		EmailAddresses:        csr.EmailAddresses,
		IPAddresses:           csr.IPAddresses,
		NotBefore:             issueAt.Add(-time.Minute),
		NotAfter:              issueAt.Add(Lifespan),
		BasicConstraintsValid: true,
	}

	switch purpose {
	case "sign":
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection}
	case "auth":
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	default:
		return nil, fmt.Errorf("unknown purpose %q", purpose)
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.cert, csr.PublicKey, a.key)
	if err != nil {
		return nil, fmt.Errorf("sign certificate: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemCert, Bytes: der}), nil
}

func parseCSR(data []byte) (*x509.CertificateRequest, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, ErrNoCSR
		}
		if block.Type != pemCSR {
			continue
		}
		csr, err := x509.ParseCertificateRequest(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("bad request: %w", err)
		}
		return csr, nil
	}
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}
	return serial, nil
}

// Run executa o stub com os argumentos da linha de comando (sem o nome do binário)
// e devolve o exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 || (args[0] != "sign" && args[0] != "auth") {
		_, _ = fmt.Fprintln(stderr, "usage: stub-signer <sign|auth> <csr-file>")
		return ExitUsage
	}
	purpose, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cannot read %s: %v\n", path, err)
		return ExitFailure
	}

	ca, err := NewAuthority()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return ExitFailure
	}
	out, err := ca.Issue(purpose, data)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return ExitFailure
	}

	if _, err := stdout.Write(out); err != nil {
		_, _ = fmt.Fprintf(stderr, "write certificate: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}
