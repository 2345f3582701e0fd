package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"countrydash/internal/engine"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoInput         = errors.New("no file uploaded")
	ErrMissingCountry  = fmt.Errorf("missing %q column", engine.IdentifierColumn)
	ErrNoCategories    = errors.New("no category columns")
	ErrInvalidValues   = errors.New("category has non-numeric values")
	ErrUnknownCategory = errors.New("unknown category")
)

const (
	msgNoInput      = "No file uploaded yet. Upload a CSV file such as countriesMBTI_16types.csv to get started."
	msgMissing      = "The data has no 'Country' column. Rename the column holding country names to 'Country' and upload it again."
	msgNoCategories = "The data has no category columns besides 'Country', so there is nothing to rank."
)

// Pipeline runs AcquireInput -> ValidateSchema -> EnumerateCategories ->
// SelectCategory -> Rank for a State.
type Pipeline struct {
	limit int
}

func NewPipeline(limit int) *Pipeline {
	if limit <= 0 {
		limit = engine.DefaultLimit
	}
	return &Pipeline{limit: limit}
}

func (p *Pipeline) Limit() int { return p.limit }

// Handle applies ev to st and recomputes. On error st is returned as is: an
// unparseable upload is not kept, and a SelectEvent for a category the current
// data does not have returns ErrUnknownCategory. That includes any select
// while the data is missing or failed the schema check.
func (p *Pipeline) Handle(st State, ev Event) (State, Outcome, error) {
	log.Debug().Str("event", ev.Kind()).Msg("dashboard event")

	switch e := ev.(type) {
	case UploadEvent:
		next := State{Upload: &Upload{Name: e.Name, Data: e.Data}, Selected: st.Selected}
		if e.Category != "" {
			next.Selected = e.Category
		}
		ns, out, err := p.Run(next)
		if err != nil {
			return st, Outcome{}, err
		}
		return ns, out, nil

	case SelectEvent:
		next := st
		next.Selected = e.Category
		ns, out, err := p.Run(next)
		if err != nil {
			return st, Outcome{}, err
		}
		// A halted outcome has no categories, so every select is unknown
		if !slices.Contains(out.Categories, e.Category) {
			return st, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
		}
		return ns, out, nil

	case ClearEvent:
		return p.Run(State{})

	default:
		return st, Outcome{}, fmt.Errorf("unsupported event %T", ev)
	}
}

// Run recomputes the outcome for st. Validation gates halt through
// Outcome.Status; err is only set when the upload cannot be parsed, in which
// case the returned state is st unchanged.
func (p *Pipeline) Run(st State) (State, Outcome, error) {
	ds, err := AcquireInput(st)
	if errors.Is(err, ErrNoInput) {
		log.Info().Msg("no upload, waiting for input")
		return st, Outcome{Status: StatusNoInput, Message: msgNoInput}, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("upload could not be parsed")
		return st, Outcome{}, err
	}

	if err := ValidateSchema(ds); err != nil {
		log.Warn().Err(err).Strs("columns", ds.Columns).Msg("schema check failed")
		return st, Outcome{Status: StatusSchemaError, Message: msgMissing}, nil
	}

	cats, err := EnumerateCategories(ds)
	if err != nil {
		log.Warn().Err(err).Msg("nothing to select")
		return st, Outcome{Status: StatusNoCategories, Message: msgNoCategories}, nil
	}

	st.Selected = SelectCategory(cats, st.Selected)
	out := Outcome{Categories: cats, Selected: st.Selected}

	ranking, err := Rank(ds, st.Selected, p.limit)
	if err != nil {
		log.Warn().Err(err).Str("category", st.Selected).Msg("category cannot be ranked")
		out.Status = StatusInvalidValues
		out.Message = fmt.Sprintf("Column %q cannot be ranked: %v. Fix the file or pick another category.", st.Selected, err)
		return st, out, nil
	}

	out.Status = StatusReady
	out.Ranking = ranking
	log.Info().Str("category", st.Selected).Int("rows", len(ranking)).Msg("ranking ready")
	return st, out, nil
}

// AcquireInput parses the current upload.
func AcquireInput(st State) (*engine.Dataset, error) {
	if st.Upload == nil {
		return nil, ErrNoInput
	}
	return engine.Load(st.Upload.Name, bytes.NewReader(st.Upload.Data))
}

// ValidateSchema requires a column named exactly "Country".
func ValidateSchema(ds *engine.Dataset) error {
	if !ds.HasColumn(engine.IdentifierColumn) {
		return ErrMissingCountry
	}
	return nil
}

// EnumerateCategories lists the selectable columns in file order.
func EnumerateCategories(ds *engine.Dataset) ([]string, error) {
	cats := ds.Categories()
	if len(cats) == 0 {
		return nil, ErrNoCategories
	}
	return cats, nil
}

// SelectCategory keeps prev while it is still offered, otherwise falls back
// to the first category.
func SelectCategory(cats []string, prev string) string {
	if prev != "" && slices.Contains(cats, prev) {
		return prev
	}
	if len(cats) == 0 {
		return ""
	}
	return cats[0]
}

// Rank returns the top limit countries for category.
func Rank(ds *engine.Dataset, category string, limit int) ([]engine.Entry, error) {
	ranking, err := ds.Rank(category, limit)
	if errors.Is(err, engine.ErrInvalidColumn) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValues, ds.Invalid[category])
	}
	return ranking, err
}
