package keys

import (
	"fmt"
	"strings"
)

const (
	// DefaultExtension is appended to names that carry no extension
	DefaultExtension = ".png"

	// DefaultRegion is used for virtual-hosted URLs when no region is configured
	DefaultRegion = "us-east-1"
)

// Target selects how an object key is built from per-call inputs.
// It is implemented by ByFolder and ByFullPath.
type Target interface {
	// Describe returns a short label used in log lines
	Describe() string

	// relative returns the key below the prefix, before slash collapsing.
	// name maps the cleaned file name (or path) to the final filename.
	relative(name func(string) string) (string, error)
}

// ByFolder builds keys as {prefix}{folder}/{name}
type ByFolder struct {
	Folder string
	Name   string
}

// ByFullPath builds keys as {prefix}{path}
type ByFullPath struct {
	Path string
}

func (t ByFolder) Describe() string   { return "folder" }
func (t ByFullPath) Describe() string { return "full_path" }

func (t ByFolder) relative(name func(string) string) (string, error) {
	folder := strings.Trim(strings.TrimSpace(t.Folder), "/")
	file := strings.TrimSpace(t.Name)
	if file == "" {
		return "", fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}

	filename := name(file)
	if folder == "" {
		return filename, nil
	}
	return folder + "/" + filename, nil
}

func (t ByFullPath) relative(name func(string) string) (string, error) {
	p := strings.Trim(strings.TrimSpace(t.Path), "/")
	if p == "" {
		return "", fmt.Errorf("%w: full path is required", ErrInvalidArgument)
	}
	return name(p), nil
}

// Resolver builds object keys and public URLs for one storage configuration
type Resolver struct {
	Prefix      string // already normalized to end with "/" when non-empty
	Bucket      string
	EndpointURL string // empty selects AWS virtual-hosted addressing
	Region      string
}

// UploadKey returns the key for frame index of a batch of batchSize frames.
// Batches larger than one get the index appended to the stem; names without
// an extension get DefaultExtension.
func (r Resolver) UploadKey(target Target, batchSize, index int) (string, error) {
	return r.build(target, func(name string) string {
		return Filename(name, batchSize, index)
	})
}

// LoadKey returns the key used to read an object. The name or path is used
// verbatim: no index and no extension defaulting.
func (r Resolver) LoadKey(target Target) (string, error) {
	return r.build(target, func(name string) string { return name })
}

func (r Resolver) build(target Target, name func(string) string) (string, error) {
	if strings.TrimSpace(r.Bucket) == "" {
		return "", fmt.Errorf("%w: S3_BUCKET_NAME not configured", ErrConfiguration)
	}
	if target == nil {
		return "", fmt.Errorf("%w: key target is required", ErrInvalidArgument)
	}

	rel, err := target.relative(name)
	if err != nil {
		return "", err
	}

	key := CollapseSlashes(r.Prefix + rel)
	return strings.TrimLeft(key, "/"), nil
}

// URL returns the address of key. With an endpoint configured it is
// path-style, otherwise it is the AWS virtual-hosted form.
func (r Resolver) URL(key string) string {
	if r.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(r.EndpointURL, "/"), r.Bucket, key)
	}

	region := r.Region
	if region == "" {
		region = DefaultRegion
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", r.Bucket, region, key)
}

// Filename applies the batch naming rule to name.
//   - batchSize > 1: "{stem}_{index}{ext}", ext defaults to ".png"
//   - otherwise: name verbatim if it contains a ".", else name + ".png"
func Filename(name string, batchSize, index int) string {
	if batchSize > 1 {
		stem, ext := SplitExt(name)
		if ext == "" {
			ext = DefaultExtension
		}
		return fmt.Sprintf("%s_%d%s", stem, index, ext)
	}

	if strings.Contains(name, ".") {
		return name
	}
	return name + DefaultExtension
}

// SplitExt splits p into stem and extension at the last "." of its final
// path element. Leading dots of the element do not start an extension, so
// ".hidden" has none.
func SplitExt(p string) (string, string) {
	sep := strings.LastIndex(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot <= sep {
		return p, ""
	}

	for i := sep + 1; i < dot; i++ {
		if p[i] != '.' {
			return p[:dot], p[dot:]
		}
	}
	return p, ""
}

// CollapseSlashes replaces "//" with "/" until no doubled slash remains
func CollapseSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}

// NormalizePrefix makes a non-empty prefix end with "/"
func NormalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
