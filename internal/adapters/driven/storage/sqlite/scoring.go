package sqlite

import (
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/custodia-labs/libris/internal/adapters/driven/storage/scoring"
)

// The retrieval strategies lean on three scalar SQL functions implemented
// in Go and registered with the driver:
//
//	vec_cosine(embedding BLOB, query BLOB) -> REAL
//	trgm_sim(a TEXT, b TEXT)               -> REAL
//	word_hits(text TEXT, query TEXT)       -> REAL
//
// Keeping the scoring inside the SQL engine means one predicate serves
// both the ranked page and its total count.

var registerOnce sync.Once

// registerScoringFunctions registers the scoring functions with the driver
// so they are available on connections opened afterwards.
func registerScoringFunctions() {
	registerOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosineImpl)
		_ = sqlite.RegisterDeterministicScalarFunction("trgm_sim", 2, trgmSimImpl)
		_ = sqlite.RegisterDeterministicScalarFunction("word_hits", 2, wordHitsImpl)
	})
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return scoring.Cosine(a, b), nil
}

func trgmSimImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, aok := asText(args[0])
	b, bok := asText(args[1])
	if !aok || !bok {
		return nil, nil
	}
	return scoring.Trigram(a, b), nil
}

func wordHitsImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, tok := asText(args[0])
	query, qok := asText(args[1])
	if !tok || !qok {
		return nil, nil
	}
	return scoring.WordHits(text, query), nil
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v)%4 != 0 {
			return nil, fmt.Errorf("invalid embedding blob length %d", len(v))
		}
		return bytesToFloat32Slice(v), nil
	default:
		return nil, fmt.Errorf("unsupported embedding argument type %T, want BLOB", arg)
	}
}

func asText(arg driver.Value) (string, bool) {
	switch v := arg.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
