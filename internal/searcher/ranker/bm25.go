// Package ranker implements Okapi BM25 term weighting.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns k1=0.9, b=0.4.
func DefaultParams() Params {
	return Params{K1: 0.9, B: 0.4}
}

func ParamsFromConfig(cfg config.BM25Config) Params {
	return Params{K1: cfg.K1, B: cfg.B}
}

func (p Params) Validate() error {
	if math.IsNaN(p.K1) || math.IsInf(p.K1, 0) || p.K1 < 0 {
		return apperrors.Configurationf("k1 must be a finite value >= 0, got %v", p.K1)
	}
	if math.IsNaN(p.B) || p.B < 0 || p.B > 1 {
		return apperrors.Configurationf("b must be in [0, 1], got %v", p.B)
	}
	return nil
}

// IDF returns ln(1 + (N - df + 0.5) / (df + 0.5)).
func IDF(df, n int) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// Score returns the BM25 weight of a term in a document:
//
//	IDF(t) * tf*(k1+1) / (tf + k1*(1 - b + b*docLen/avgDocLen))
//
// tf = 0 yields 0. df <= 0 fails with ErrInvalidTerm. Invalid parameters,
// avgDocLen <= 0 or df > N fail with ErrConfiguration.
func Score(tf, df, n, docLen int, avgDocLen float64, p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := validateCollection(n, avgDocLen); err != nil {
		return 0, err
	}
	return weight(tf, df, n, docLen, avgDocLen, p)
}

func validateCollection(n int, avgDocLen float64) error {
	if n <= 0 {
		return apperrors.Configurationf("collection size must be positive, got %d", n)
	}
	if math.IsNaN(avgDocLen) || math.IsInf(avgDocLen, 0) || avgDocLen <= 0 {
		return apperrors.Configurationf("average document length must be positive, got %v", avgDocLen)
	}
	return nil
}

func weight(tf, df, n, docLen int, avgDocLen float64, p Params) (float64, error) {
	if tf < 0 || docLen < 0 {
		return 0, apperrors.InvalidArgumentf("negative tf (%d) or document length (%d)", tf, docLen)
	}
	if tf == 0 {
		return 0, nil
	}
	if df <= 0 {
		return 0, apperrors.InvalidTermf("document frequency must be positive, got %d", df)
	}
	if df > n {
		return 0, apperrors.Configurationf("document frequency %d exceeds collection size %d", df, n)
	}
	// tf*(k1+1) / (tf + k1*norm), divided through by tf. Each step is a
	// monotone rounded operation, so the weight never drops as tf grows.
	termFreq := float64(tf)
	norm := 1 - p.B + p.B*float64(docLen)/avgDocLen
	return IDF(df, n) * (p.K1 + 1) / (1 + p.K1*norm/termFreq), nil
}

// Scorer binds BM25 parameters to one collection's N and average document
// length, validated once so per-posting calls only check their own inputs.
type Scorer struct {
	params    Params
	totalDocs int
	avgDocLen float64
}

// CollectionStats is the subset of the statistics store a Scorer needs.
type CollectionStats interface {
	TotalDocs() int
	AvgDocLength() float64
}

// NewScorer fails with ErrConfiguration for invalid parameters or an
// empty collection (N = 0 or average length 0).
func NewScorer(params Params, stats CollectionStats) (*Scorer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := validateCollection(stats.TotalDocs(), stats.AvgDocLength()); err != nil {
		return nil, err
	}
	return &Scorer{
		params:    params,
		totalDocs: stats.TotalDocs(),
		avgDocLen: stats.AvgDocLength(),
	}, nil
}

// Weight scores one (document, term) pair.
func (s *Scorer) Weight(tf, df, docLen int) (float64, error) {
	return weight(tf, df, s.totalDocs, docLen, s.avgDocLen, s.params)
}

// IDF of a term with document frequency df in this collection.
func (s *Scorer) IDF(df int) float64 {
	return IDF(df, s.totalDocs)
}

func (s *Scorer) Params() Params {
	return s.params
}
