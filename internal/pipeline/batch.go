package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
	"github.com/ironsheep/gabarito-omr/internal/imaging"
)

// ImageRef points at one photo of a batch. Exactly one of Image, Data and
// Path is used, in that order of preference.
type ImageRef struct {
	// ID identifies the item in results; defaults to the path or index.
	ID    string
	Image image.Image
	Data  []byte
	Path  string
}

// BatchRequest describes a batch run.
type BatchRequest struct {
	Images []ImageRef

	// Key grades every sheet. When nil and ReadKeyFromSheet is set, each
	// photo's own QR code supplies its key; otherwise sheets are only
	// extracted, with TotalQuestions questions.
	Key              *answerkey.Payload
	ReadKeyFromSheet bool
	TotalQuestions   int
}

// ItemResult is the outcome for one photo. A failed item never affects the
// others.
type ItemResult struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Sheet     *Sheet `json:"sheet,omitempty"`
}

// Summary aggregates a settled batch.
type Summary struct {
	Total             int     `json:"total"`
	Successful        int     `json:"successful"`
	Failed            int     `json:"failed"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// BatchResult holds one ItemResult per input, in input order.
type BatchResult struct {
	Results []ItemResult  `json:"results"`
	Summary Summary       `json:"summary"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// ProcessBatch runs every photo through the pipeline, GroupSize at a time.
// Decoded images are evicted from the cache after each group and the next
// group starts only after GroupDelay. Items not started when ctx ends are
// reported as cancelled.
func (p *Pipeline) ProcessBatch(ctx context.Context, req BatchRequest) *BatchResult {
	start := time.Now()
	n := len(req.Images)
	results := make([]ItemResult, n)
	log := p.logger.WithFields(logrus.Fields{"images": n, "group_size": p.opts.GroupSize})
	log.Info("Starting batch")

	for lo := 0; lo < n; lo += p.opts.GroupSize {
		hi := min(lo+p.opts.GroupSize, n)

		if lo > 0 && !sleepCtx(ctx, p.opts.GroupDelay) || ctx.Err() != nil {
			for i := lo; i < n; i++ {
				results[i] = failed(i, itemID(req.Images[i], i), ctx.Err())
			}
			log.WithField("remaining", n-lo).Warn("Batch cancelled")
			break
		}

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = p.processItem(ctx, i, req)
			}(i)
		}
		wg.Wait()

		for i := lo; i < hi; i++ {
			p.cache.Evict(cacheKey(req.Images[i], i))
		}
	}

	res := &BatchResult{Results: results, Summary: Summarize(results), Elapsed: time.Since(start)}
	log.WithFields(logrus.Fields{
		"successful":         res.Summary.Successful,
		"failed":             res.Summary.Failed,
		"average_confidence": res.Summary.AverageConfidence,
		"elapsed":            res.Elapsed,
	}).Info("Batch finished")
	return res
}

func (p *Pipeline) processItem(ctx context.Context, i int, req BatchRequest) (res ItemResult) {
	ref := req.Images[i]
	id := itemID(ref, i)
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{"item": id, "panic": r, "stack": string(debug.Stack())}).Error("Sheet processing panicked")
			res = failed(i, id, fmt.Errorf("internal error: %v", r))
		}
	}()

	img, err := p.load(ref, i)
	if err != nil {
		return failed(i, id, err)
	}

	var sheet *Sheet
	switch {
	case req.Key != nil:
		sheet, err = p.Correct(ctx, img, req.Key)
	case req.ReadKeyFromSheet:
		var key *answerkey.Payload
		if key, err = p.ReadKey(img); err == nil {
			sheet, err = p.Correct(ctx, img, key)
		}
	default:
		sheet, err = p.Extract(ctx, img, req.TotalQuestions)
	}
	if err != nil {
		p.logger.WithError(err).WithField("item", id).Info("Sheet failed")
		return failed(i, id, err)
	}
	return ItemResult{Index: i, ID: id, Success: true, Sheet: sheet}
}

func (p *Pipeline) load(ref ImageRef, i int) (image.Image, error) {
	switch {
	case ref.Image != nil:
		return ref.Image, nil
	case len(ref.Data) > 0:
		img, err := imaging.DecodeBytes(ref.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		p.cache.Put(cacheKey(ref, i), img)
		return img, nil
	case ref.Path != "":
		img, err := p.cache.Load(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: empty image reference", ErrInvalidImage)
	}
}

// Summarize reduces settled item results. The average confidence covers
// successful items only and is 0 when there are none.
func Summarize(results []ItemResult) Summary {
	s := Summary{Total: len(results)}
	var sum int
	for _, r := range results {
		if !r.Success {
			s.Failed++
			continue
		}
		s.Successful++
		if r.Sheet != nil {
			sum += r.Sheet.Extraction.Confidence
		}
	}
	if s.Successful > 0 {
		s.AverageConfidence = math.Round(100*float64(sum)/float64(s.Successful)) / 100
	}
	return s
}

func failed(i int, id string, err error) ItemResult {
	if err == nil {
		err = context.Canceled
	}
	return ItemResult{Index: i, ID: id, Error: err.Error(), ErrorKind: ErrorKind(err)}
}

func itemID(ref ImageRef, i int) string {
	switch {
	case ref.ID != "":
		return ref.ID
	case ref.Path != "":
		return ref.Path
	default:
		return fmt.Sprintf("image-%d", i+1)
	}
}

// cacheKey is the path for file refs, so repeated paths share one decode.
func cacheKey(ref ImageRef, i int) string {
	if ref.Path != "" && ref.Image == nil && len(ref.Data) == 0 {
		return ref.Path
	}
	return fmt.Sprintf("batch-item-%d:%s", i, itemID(ref, i))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
