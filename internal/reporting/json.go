package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/checkgate/checkgate/internal/gate"
)

func WriteJSON(evalID, outDir string, ev *gate.Evaluation) (string, error) {
	path := filepath.Join(outDir, evalID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ev); err != nil {
		return "", err
	}
	return path, nil
}
