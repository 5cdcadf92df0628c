package main

import (
	"log"

	"yieldplus/services/yieldd"
)

func main() {
	if err := yieldd.Main(); err != nil {
		log.Fatalf("yieldd: %v", err)
	}
}
