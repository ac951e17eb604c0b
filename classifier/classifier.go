package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mskavach/kavach/model"
)

// Frame is one captured image offered for analysis.
type Frame struct {
	ID    string
	Image string // path or URI of the captured image
}

// Result is the classifier's verdict for a frame.
type Result struct {
	Label    model.Classification
	Evidence string // image reference forwarded to the control room
}

// Classifier labels frames as NORMAL or DISTRESS.
type Classifier interface {
	Classify(ctx context.Context, f Frame) (Result, error)
}

// Sample pairs a demo frame with its known label.
type Sample struct {
	Frame Frame
	Label model.Classification
}

// DemoSamples is the stock frame set of the simulation dashboard.
var DemoSamples = []Sample{
	{Frame: Frame{ID: "normal1", Image: "assets/normal1.jpg"}, Label: model.ClassNormal},
	{Frame: Frame{ID: "normal2", Image: "assets/normal2.jpg"}, Label: model.ClassNormal},
	{Frame: Frame{ID: "distress1", Image: "assets/distress1.jpg"}, Label: model.ClassDistress},
	{Frame: Frame{ID: "distress2", Image: "assets/distress2.jpg"}, Label: model.ClassDistress},
	{Frame: Frame{ID: "distress3", Image: "assets/distress3.jpg"}, Label: model.ClassDistress},
}

// Catalog is a simulated classifier that answers from a fixed label table.
type Catalog struct {
	labels map[string]model.Classification
	delay  time.Duration
}

// NewCatalog builds a catalog from samples. delay simulates processing time.
func NewCatalog(samples []Sample, delay time.Duration) *Catalog {
	labels := make(map[string]model.Classification, len(samples))
	for _, s := range samples {
		labels[s.Frame.ID] = s.Label
	}
	return &Catalog{labels: labels, delay: delay}
}

// Classify returns the catalog label for f after the processing delay.
// Only DISTRESS verdicts carry evidence.
func (c *Catalog) Classify(ctx context.Context, f Frame) (Result, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	label, ok := c.labels[f.ID]
	if !ok {
		return Result{}, fmt.Errorf("frame %q not in catalog", f.ID)
	}
	res := Result{Label: label}
	if label == model.ClassDistress {
		res.Evidence = f.Image
	}
	return res, nil
}
