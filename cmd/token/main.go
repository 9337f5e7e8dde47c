// token emite un JWT de desarrollo para el usuario responsable de las consolidaciones.
//
// Uso: go run ./cmd/token -user <id> [-name "Operador"]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/medprod-fiscal/pkg/config"
	"github.com/jhoicas/medprod-fiscal/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "ID del usuario responsable")
	name := flag.String("name", "", "nombre a incluir en el token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *name, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
