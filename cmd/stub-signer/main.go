// stub-signer substitui o sign_req.sh em ambiente de desenvolvimento:
//
//	SIGNER_PATH=./stub-signer gateway serve
package main

import (
	"os"

	"csr-gateway/signing/stub"
)

func main() {
	os.Exit(stub.Run(os.Args[1:], os.Stdout, os.Stderr))
}
