package node

import (
	"context"
	"fmt"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/transfer"
)

// Values holds node inputs or outputs by port name. IMAGE ports carry a
// codec.Batch, MASK ports a []codec.MaskPlane, STRING ports a string and
// PROMPT / EXTRA_PNGINFO ports a map[string]interface{}.
type Values map[string]interface{}

// Node is one host operation
type Node interface {
	Definition() Definition
	Execute(ctx context.Context, in Values) (Values, error)
}

// Transferer moves images between frames and the object store
type Transferer interface {
	Upload(ctx context.Context, batch codec.Batch, target keys.Target) (transfer.UploadResult, error)
	Load(ctx context.Context, target keys.Target) (transfer.LoadResult, error)
}

var (
	uploadOutputs = []Port{{Name: "s3_url", Type: TypeString}, {Name: "path", Type: TypeString}}
	loadOutputs   = []Port{{Name: "image", Type: TypeImage}, {Name: "mask", Type: TypeMask}}
)

// uploadNode writes its IMAGE input under a key chosen by target
type uploadNode struct {
	def      Definition
	transfer Transferer
	target   func(Values) keys.Target
}

func (n *uploadNode) Definition() Definition { return n.def }

func (n *uploadNode) Execute(ctx context.Context, in Values) (Values, error) {
	batch, ok := in["images"].(codec.Batch)
	if !ok {
		return nil, fmt.Errorf("%w: images must be an IMAGE batch", keys.ErrInvalidArgument)
	}

	res, err := n.transfer.Upload(ctx, batch, n.target(in))
	if err != nil {
		return nil, err
	}

	return Values{"s3_url": res.URL, "path": res.Key}, nil
}

// loadNode reads the object chosen by target into an IMAGE and a MASK
type loadNode struct {
	def      Definition
	transfer Transferer
	target   func(Values) keys.Target
}

func (n *loadNode) Definition() Definition { return n.def }

func (n *loadNode) Execute(ctx context.Context, in Values) (Values, error) {
	res, err := n.transfer.Load(ctx, n.target(in))
	if err != nil {
		return nil, err
	}

	return Values{"image": res.Images, "mask": res.Masks}, nil
}

func byFolder(in Values) keys.Target {
	return keys.ByFolder{Folder: stringInput(in, "folder_path"), Name: stringInput(in, "file_name")}
}

func byFullPath(in Values) keys.Target {
	return keys.ByFullPath{Path: stringInput(in, "full_path")}
}

func stringInput(in Values, name string) string {
	s, _ := in[name].(string)
	return s
}

// NewUploadImage uploads a batch under {prefix}{folder_path}/{file_name}
func NewUploadImage(t Transferer) Node {
	return &uploadNode{
		def: Definition{
			Name:        "S3UploadImage",
			DisplayName: "S3 Upload Image",
			Category:    Category,
			Description: "Upload images from the workflow to the S3 bucket",
			Inputs: []Port{
				{Name: "images", Type: TypeImage},
				{Name: "folder_path", Type: TypeString, Default: ""},
				{Name: "file_name", Type: TypeString, Default: ""},
			},
			Outputs:    uploadOutputs,
			OutputNode: true,
		},
		transfer: t,
		target:   byFolder,
	}
}

// NewLoadImage loads {prefix}{folder_path}/{file_name}
func NewLoadImage(t Transferer) Node {
	return &loadNode{
		def: Definition{
			Name:        "S3LoadImage",
			DisplayName: "S3 Load Image",
			Category:    Category,
			Description: "Load an image from the S3 bucket into the workflow",
			Inputs: []Port{
				{Name: "folder_path", Type: TypeString, Default: ""},
				{Name: "file_name", Type: TypeString, Default: ""},
			},
			Outputs: loadOutputs,
		},
		transfer: t,
		target:   byFolder,
	}
}

// NewUploadImageFullPath uploads a batch under {prefix}{full_path}
func NewUploadImageFullPath(t Transferer) Node {
	return &uploadNode{
		def: Definition{
			Name:        "S3UploadImageFullPath",
			DisplayName: "S3 Upload Image (Full Path)",
			Category:    Category,
			Description: "Upload images to the S3 bucket using a full object path",
			Inputs: []Port{
				{Name: "images", Type: TypeImage},
				{Name: "full_path", Type: TypeString, Default: ""},
			},
			Outputs:    uploadOutputs,
			OutputNode: true,
		},
		transfer: t,
		target:   byFullPath,
	}
}

// NewLoadImageFullPath loads {prefix}{full_path}
func NewLoadImageFullPath(t Transferer) Node {
	return &loadNode{
		def: Definition{
			Name:        "S3LoadImageFullPath",
			DisplayName: "S3 Load Image (Full Path)",
			Category:    Category,
			Description: "Load an image from the S3 bucket using a full object path",
			Inputs: []Port{
				{Name: "full_path", Type: TypeString, Default: ""},
			},
			Outputs: loadOutputs,
		},
		transfer: t,
		target:   byFullPath,
	}
}
