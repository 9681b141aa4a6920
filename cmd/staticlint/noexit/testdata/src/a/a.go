package a

import (
	"errors"
	"log"
	"os"
)

func deleteAll() error {
	return errors.New("boom")
}

func purge() {
	if err := deleteAll(); err != nil {
		log.Fatalf("purge: %v", err) // want "log.Fatalf terminates the process; return an error instead"
	}
	os.Exit(1) // want "os.Exit terminates the process; return an error instead"
}

func fine() error {
	log.Println("still running")
	return deleteAll()
}
