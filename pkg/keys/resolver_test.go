package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_UploadKey(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		target    Target
		batchSize int
		index     int
		want      string
	}{
		{
			name:      "prefix with plain file name",
			prefix:    "out/",
			target:    ByFolder{Folder: "", Name: "img.png"},
			batchSize: 1,
			want:      "out/img.png",
		},
		{
			name:      "folder with extension defaulted",
			prefix:    "",
			target:    ByFolder{Folder: "a/b", Name: "img"},
			batchSize: 1,
			want:      "a/b/img.png",
		},
		{
			name:      "batch index appended before extension",
			prefix:    "p/",
			target:    ByFolder{Folder: "", Name: "img.png"},
			batchSize: 3,
			index:     1,
			want:      "p/img_1.png",
		},
		{
			name:      "batch without extension gets png",
			prefix:    "p/",
			target:    ByFolder{Folder: "shots", Name: "frame"},
			batchSize: 2,
			index:     0,
			want:      "p/shots/frame_0.png",
		},
		{
			name:      "folder whitespace and slashes trimmed",
			prefix:    "p/",
			target:    ByFolder{Folder: "  /renders/day1/ ", Name: " out.jpg "},
			batchSize: 1,
			want:      "p/renders/day1/out.jpg",
		},
		{
			name:      "full path single frame",
			prefix:    "jobs/",
			target:    ByFullPath{Path: "/2024/10/result"},
			batchSize: 1,
			want:      "jobs/2024/10/result.png",
		},
		{
			name:      "full path batch splits last element only",
			prefix:    "",
			target:    ByFullPath{Path: "v1.2/result"},
			batchSize: 2,
			index:     1,
			want:      "v1.2/result_1.png",
		},
		{
			name:      "full path single frame keeps dotted directory verbatim",
			prefix:    "",
			target:    ByFullPath{Path: "v1.2/result"},
			batchSize: 1,
			want:      "v1.2/result",
		},
		{
			name:      "hidden file has no extension in batches",
			prefix:    "",
			target:    ByFolder{Name: ".hidden"},
			batchSize: 2,
			index:     0,
			want:      ".hidden_0.png",
		},
		{
			name:      "prefix with repeated slashes collapses fully",
			prefix:    "out///",
			target:    ByFolder{Name: "img.png"},
			batchSize: 1,
			want:      "out/img.png",
		},
		{
			name:      "leading slash in name is dropped",
			prefix:    "",
			target:    ByFolder{Name: "/img.png"},
			batchSize: 1,
			want:      "img.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolver{Prefix: tt.prefix, Bucket: "bucket"}
			got, err := r.UploadKey(tt.target, tt.batchSize, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_LoadKey(t *testing.T) {
	r := Resolver{Prefix: "p/", Bucket: "bucket"}

	t.Run("folder_name_verbatim", func(t *testing.T) {
		got, err := r.LoadKey(ByFolder{Folder: "/a/", Name: "img"})
		require.NoError(t, err)
		assert.Equal(t, "p/a/img", got)
	})

	t.Run("full_path_trimmed", func(t *testing.T) {
		got, err := r.LoadKey(ByFullPath{Path: " /a/b/c.webp/ "})
		require.NoError(t, err)
		assert.Equal(t, "p/a/b/c.webp", got)
	})
}

func TestResolver_Errors(t *testing.T) {
	t.Run("missing_bucket", func(t *testing.T) {
		r := Resolver{Prefix: "p/"}
		_, err := r.UploadKey(ByFolder{Name: "img.png"}, 1, 0)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), "S3_BUCKET_NAME")
	})

	t.Run("empty_file_name", func(t *testing.T) {
		r := Resolver{Bucket: "b"}
		_, err := r.UploadKey(ByFolder{Folder: "a", Name: "   "}, 1, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("empty_full_path", func(t *testing.T) {
		r := Resolver{Bucket: "b"}
		_, err := r.LoadKey(ByFullPath{Path: " // "})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("nil_target", func(t *testing.T) {
		r := Resolver{Bucket: "b"}
		_, err := r.LoadKey(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestResolver_NeverDoubleSlash(t *testing.T) {
	prefixes := []string{"p/", "p//", "/", "a/b/"}
	folders := []string{"x", "/x/", "x//y", "//"}
	names := []string{"n", "/n.png", "n//m.png", "a.b"}

	for _, p := range prefixes {
		for _, f := range folders {
			for _, n := range names {
				r := Resolver{Prefix: p, Bucket: "b"}
				for _, size := range []int{1, 3} {
					key, err := r.UploadKey(ByFolder{Folder: f, Name: n}, size, 2)
					require.NoError(t, err)
					assert.False(t, strings.Contains(key, "//"), "key %q has a doubled slash", key)
					assert.False(t, strings.HasPrefix(key, "/"), "key %q has a leading slash", key)
				}
			}
		}
	}
}

func TestResolver_URL(t *testing.T) {
	t.Run("custom_endpoint_path_style", func(t *testing.T) {
		r := Resolver{Bucket: "b", EndpointURL: "http://minio:9000/", Region: "us-east-1"}
		assert.Equal(t, "http://minio:9000/b/k.png", r.URL("k.png"))
	})

	t.Run("aws_virtual_hosted", func(t *testing.T) {
		r := Resolver{Bucket: "b", Region: "eu-west-1"}
		assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/k.png", r.URL("k.png"))
	})

	t.Run("empty_region_defaults", func(t *testing.T) {
		r := Resolver{Bucket: "b"}
		assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com/dir/k.png", r.URL("dir/k.png"))
	})
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		in       string
		wantStem string
		wantExt  string
	}{
		{"img.png", "img", ".png"},
		{"img", "img", ""},
		{"a.tar.gz", "a.tar", ".gz"},
		{"dir.v2/img", "dir.v2/img", ""},
		{".hidden", ".hidden", ""},
		{"..double", "..double", ""},
		{"dir/.env.local", "dir/.env", ".local"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			stem, ext := SplitExt(tt.in)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", NormalizePrefix(""))
	assert.Equal(t, "out/", NormalizePrefix("out"))
	assert.Equal(t, "out/", NormalizePrefix("out/"))
}
