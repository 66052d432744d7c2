package main

import (
	"os"
)

// @title           Klunkaz API
// @version         1.0
// @description     Bike registry: ownership, sale, rental, stolen flags and reviews

// @BasePath  /

// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
