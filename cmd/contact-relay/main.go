package main

import (
	"github.com/sirupsen/logrus"

	"contact-relay-go/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		logrus.Fatalf("Service failed: %v", err)
	}
}
