package adapters

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"classifier_backend/internal/feature/classification/domain/entity"
)

// LoadLabelsFile は1行1ラベルのファイルを読み込みます。
// 空行と "#" で始まる行は無視されます。
func LoadLabelsFile(path string) (entity.Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var labels entity.Labels
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s contains no labels", path)
	}
	return labels, nil
}
