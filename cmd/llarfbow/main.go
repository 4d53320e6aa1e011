package main

import "github.com/goplus/llarfbow/cmd/llarfbow/internal"

func main() {
	internal.Execute()
}
