package stt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultModelDirs lists the locations searched for ggml model files, in
// order.
func defaultModelDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, "whisper-models"),
			filepath.Join(home, ".cache", "whisper"),
		)
	}
	dirs = append(dirs,
		"/usr/share/whisper/models",
		"/usr/local/share/whisper/models",
	)
	return dirs
}

// ResolveModelPath locates the ggml model file for a variant ("tiny",
// "base", ...). An explicit path wins when it exists. The returned error is
// an actionable diagnostic listing every searched location.
func ResolveModelPath(explicit, variant string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("model file not found: %s", explicit)
	}

	name := fmt.Sprintf("ggml-%s.bin", variant)
	dirs := defaultModelDirs()
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "model file %s not found; searched:\n", name)
	for _, dir := range dirs {
		fmt.Fprintf(&b, "  - %s\n", dir)
	}
	fmt.Fprintf(&b, "download it with: bash models/download-ggml-model.sh %s\n", variant)
	fmt.Fprintf(&b, "or set stt.model_path in the config file")
	return "", fmt.Errorf("%s", b.String())
}
