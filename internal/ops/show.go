package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/chatctx/internal/db"
	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/run"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	RunID string
}

// ShowOutput is a run together with its extracts.
type ShowOutput struct {
	run.Run
	NoMatches bool          `json:"no_matches"`
	Extracts  []run.Extract `json:"extracts"`
}

// Show retrieves one run from the ledger.
func Show(database *sql.DB, input ShowInput) (*ShowOutput, error) {
	id := strings.TrimSpace(input.RunID)
	if id == "" {
		return nil, errors.NewInvalidRequest("run id is required")
	}

	r, err := db.GetRun(database, id)
	if err != nil {
		return nil, err
	}

	extracts, err := db.ListExtracts(database, id)
	if err != nil {
		return nil, err
	}
	if extracts == nil {
		extracts = []run.Extract{}
	}

	return &ShowOutput{
		Run:       *r,
		NoMatches: r.NoMatches(),
		Extracts:  extracts,
	}, nil
}
