//go:build tools

package main

//go:generate go run github.com/99designs/gqlgen generate

import (
	_ "github.com/99designs/gqlgen"
	_ "github.com/vektah/gqlparser/v2"
)
