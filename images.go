package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedImageName is returned for image files that do not follow
// the <tok0>_<tok1>_<site>_<range>.<ext> naming scheme
var ErrMalformedImageName = errors.New("malformed survey image name")

// ErrEmptyImageToken marks a name with the right token count but an empty
// site or range token. Locate skips such files.
var ErrEmptyImageToken = errors.New("empty site or range token")

// ErrImageNotFound is returned when a requested image is not in the image directory
var ErrImageNotFound = errors.New("image not found")

const sitePlaceholder = "{site}"

// Token positions inside an underscore-delimited image name
const (
	imageSiteToken  = 2
	imageRangeToken = 3
	imageMinTokens  = 4
)

// ImageSortMode selects how range tokens are ordered
type ImageSortMode string

const (
	// ImageSortText compares range tokens as strings, so "10" sorts before "2"
	ImageSortText ImageSortMode = "text"
	// ImageSortNumeric compares range tokens as numbers; non-numeric tokens go last
	ImageSortNumeric ImageSortMode = "numeric"
)

// ParseImageSortMode parses the images.sort setting ("" means text)
func ParseImageSortMode(s string) (ImageSortMode, error) {
	switch ImageSortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImageSortText:
		return ImageSortText, nil
	case ImageSortNumeric:
		return ImageSortNumeric, nil
	}
	return "", fmt.Errorf("images.sort %q must be %q or %q", s, ImageSortText, ImageSortNumeric)
}

// SurveyImage is a survey photograph with the metadata encoded in its name
type SurveyImage struct {
	Path       string `json:"-"`
	Name       string `json:"name"`
	Site       string `json:"site"`
	RangeToken string `json:"range"`
	Size       int64  `json:"size"`
}

// ParseSurveyImageName extracts the site and range token from a file name.
// The range token is the fourth underscore-delimited token without its
// extension, so "0.5.jpg" gives "0.5".
func ParseSurveyImageName(name string) (SurveyImage, error) {
	base := filepath.Base(name)
	tokens := strings.Split(base, "_")
	if len(tokens) < imageMinTokens {
		return SurveyImage{}, fmt.Errorf("%w: %q has %d tokens, need %d",
			ErrMalformedImageName, base, len(tokens), imageMinTokens)
	}

	rangeToken := tokens[imageRangeToken]
	rangeToken = strings.TrimSuffix(rangeToken, filepath.Ext(rangeToken))
	if tokens[imageSiteToken] == "" || rangeToken == "" {
		return SurveyImage{}, fmt.Errorf("%w: %q has an %w", ErrMalformedImageName, base, ErrEmptyImageToken)
	}

	return SurveyImage{
		Path:       name,
		Name:       base,
		Site:       tokens[imageSiteToken],
		RangeToken: rangeToken,
	}, nil
}

// ImageLocator finds the survey photographs of a site
type ImageLocator struct {
	dir     string
	pattern string
	mode    ImageSortMode
}

// NewImageLocator creates a locator over dir using a {site} glob pattern
func NewImageLocator(dir, pattern string, mode ImageSortMode) *ImageLocator {
	if mode == "" {
		mode = ImageSortText
	}
	return &ImageLocator{dir: dir, pattern: pattern, mode: mode}
}

// Glob returns the glob pattern used for a site
func (l *ImageLocator) Glob(site string) string {
	return filepath.Join(l.dir, strings.ReplaceAll(l.pattern, sitePlaceholder, escapeGlob(site)))
}

// Locate returns the images of a site ordered by range token.
// A file whose name has too few tokens fails the whole lookup. Files with an
// empty site or range token, or naming a different site, are skipped.
func (l *ImageLocator) Locate(site string) ([]SurveyImage, error) {
	paths, err := filepath.Glob(l.Glob(site))
	if err != nil {
		return nil, fmt.Errorf("glob images for %s: %w", site, err)
	}

	images := make([]SurveyImage, 0, len(paths))
	for _, p := range paths {
		img, err := ParseSurveyImageName(p)
		if errors.Is(err, ErrEmptyImageToken) {
			log.Printf("Skipping image %s: %v", filepath.Base(p), err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if img.Site != site {
			log.Printf("Skipping image %s: site token %q does not match %q", img.Name, img.Site, site)
			continue
		}
		if info, err := os.Stat(p); err == nil {
			img.Size = info.Size()
		}
		images = append(images, img)
	}

	SortSurveyImages(images, l.mode)
	return images, nil
}

// Resolve returns the path of a named image inside the image directory.
// Names with directory components or outside the naming scheme are rejected.
func (l *ImageLocator) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrImageNotFound, name)
	}
	if _, err := ParseSurveyImageName(name); err != nil {
		return "", fmt.Errorf("%w: %q", ErrImageNotFound, name)
	}

	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrImageNotFound, name)
	}
	return path, nil
}

// SortSurveyImages orders images by range token, keeping the input order for ties
func SortSurveyImages(images []SurveyImage, mode ImageSortMode) {
	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i].RangeToken, images[j].RangeToken
		if mode != ImageSortNumeric {
			return a < b
		}
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		switch {
		case errA == nil && errB == nil:
			return fa < fb
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return a < b
	})
}

// escapeGlob keeps glob metacharacters in a site name literal.
// filepath.Match has no escape on Windows, so metacharacters become '?' there
// and Locate's site check drops false matches.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			if runtime.GOOS == "windows" {
				b.WriteRune('?')
				continue
			}
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
