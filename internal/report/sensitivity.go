package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/postprocess"
)

var sensitivityHeader = []string{"nettingSetId", "pillarIndex", "bumpedCVA", "delta"}

// SensitivityRow is one netting set's one pillar bump.
type SensitivityRow struct {
	NettingSetID string
	Sensitivity  postprocess.CVASensitivity
}

// WriteSensitivityCSV writes the CVA spread sensitivity bump-and-
// reprice results to w, one row per (netting set, pillar).
func WriteSensitivityCSV(w io.Writer, rows []SensitivityRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sensitivityHeader); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.NettingSetID,
			strconv.Itoa(r.Sensitivity.PillarIndex),
			formatFloat(r.Sensitivity.BumpedCVA),
			formatFloat(r.Sensitivity.Delta),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveSensitivityCSV writes rows to path.
func SaveSensitivityCSV(path string, rows []SensitivityRow) error {
	f, err := os.Create(path)
	if err != nil {
		return oreerr.NewIO(err, "report: creating %q", path)
	}
	defer f.Close()
	if err := WriteSensitivityCSV(f, rows); err != nil {
		return oreerr.NewIO(err, "report: writing %q", path)
	}
	return nil
}
