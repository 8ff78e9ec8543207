package cmd

import (
	"errors"
	"fmt"
)

func errChainNotFound(chainID string) error {
	return fmt.Errorf("chain \"%s\" not found in config", chainID)
}

func errChainExists(chainID string) error {
	return fmt.Errorf("chain \"%s\" already exists in config", chainID)
}

func errPathNotFound(pathName string) error {
	return fmt.Errorf("path \"%s\" not found in config", pathName)
}

func errPathExists(pathName string) error {
	return fmt.Errorf("path \"%s\" already exists in config", pathName)
}

var (
	errConfigNotFound = errors.New("config not found, run 'ics721 config init' first")
	errBothJSONYAML   = errors.New("can't pass both --json and --yaml, must pick one")
)
