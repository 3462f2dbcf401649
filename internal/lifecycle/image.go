package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/distribution/reference"
)

// PullPolicy controls when Resolve pulls the image through the engine.
type PullPolicy int

const (
	// PullIfMissing pulls only when the image is not present locally.
	PullIfMissing PullPolicy = iota
	// PullAlways pulls on every resolve.
	PullAlways
	// PullNever fails resolution if the image is not present locally.
	PullNever
)

// Image is a lazily resolved image reference. Resolution normalizes the raw
// reference, applies the pull policy through the engine, and is performed at
// most once; concurrent callers share the result.
type Image struct {
	raw    string
	policy PullPolicy

	once     sync.Once
	resolved string
	err      error
}

// NewImage returns an image for the given reference, e.g. "redis:7-alpine".
// The reference is not validated until Resolve.
func NewImage(ref string) *Image {
	return &Image{raw: ref}
}

// WithPullPolicy sets the pull policy. Must be called before Resolve.
func (i *Image) WithPullPolicy(p PullPolicy) *Image {
	i.policy = p
	return i
}

// Raw returns the reference as given, for logging before resolution.
func (i *Image) Raw() string {
	return i.raw
}

// Resolve normalizes the reference and ensures the image is available per the
// pull policy. Safe for concurrent use; the first call does the work.
func (i *Image) Resolve(ctx context.Context, e Engine) (string, error) {
	i.once.Do(func() {
		i.resolved, i.err = i.resolve(ctx, e)
	})
	if i.err != nil {
		return "", fmt.Errorf("resolve image %q: %w", i.raw, i.err)
	}
	return i.resolved, nil
}

func (i *Image) resolve(ctx context.Context, e Engine) (string, error) {
	named, err := reference.ParseNormalizedNamed(i.raw)
	if err != nil {
		return "", err
	}
	ref := reference.FamiliarString(reference.TagNameOnly(named))

	switch i.policy {
	case PullAlways:
		if err := e.PullImage(ctx, ref); err != nil {
			return "", err
		}
	case PullIfMissing:
		exists, err := e.ImageExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			if err := e.PullImage(ctx, ref); err != nil {
				return "", err
			}
		}
	case PullNever:
		exists, err := e.ImageExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fmt.Errorf("image not present locally and pull policy is never")
		}
	}
	return ref, nil
}
