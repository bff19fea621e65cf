package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssetSeed is one entry of the tracked-asset registry file.
type AssetSeed struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Quote  string `yaml:"quote"`
}

type assetsFile struct {
	Assets []AssetSeed `yaml:"assets"`
}

// LoadAssets reads the YAML asset registry. Symbols are uppercased; the quote
// currency defaults to USDT.
func LoadAssets(path string) ([]AssetSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f assetsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing assets file failed (%s): %w", path, err)
	}
	out := make([]AssetSeed, 0, len(f.Assets))
	for _, a := range f.Assets {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Symbol == "" {
			continue
		}
		if a.Quote == "" {
			a.Quote = "USDT"
		}
		a.Quote = strings.ToUpper(a.Quote)
		out = append(out, a)
	}
	return out, nil
}
