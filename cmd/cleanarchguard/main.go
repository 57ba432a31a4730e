// Command cleanarchguard checks that module packages only import inward:
// presentation may use services and domain, services may use domain, and
// domain imports no other layer.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
)

func main() {
	var (
		configPath = flag.String("config", ".gocleanarch.yml", "path to the guard configuration")
		debug      = flag.Bool("debug", false, "enable go-cleanarch debug output")
	)

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to read config: %v\n", err)
	}

	root, err := resolveRoot(cfg.Root)
	if err != nil {
		log.Fatalf("failed to resolve root: %v\n", err)
	}

	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}

	validator := cleanarch.NewValidator(cfg.layerAliases())

	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		log.Fatalf("go-cleanarch failed: %v\n", err)
	}

	messages := make([]string, 0, len(errs))
	for _, validationErr := range errs {
		messages = append(messages, validationErr.Error())
	}

	violations := filterViolations(messages, cfg)
	if !ok && len(violations) > 0 {
		for _, msg := range violations {
			log.Println(msg)
		}
		log.Printf("layering check failed: %d violation(s)\n", len(violations))
		os.Exit(1)
	}

	log.Println("layering check passed")
}
