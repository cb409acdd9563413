package node

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
)

// WireImage is one frame or mask on the bridge. Data is base64 of the
// samples as little-endian float32 in height x width x channels order.
// Masks omit Channels.
type WireImage struct {
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	Channels int    `json:"channels,omitempty"`
	Data     string `json:"data"`
}

func packFloats(pix []float32) string {
	buf := make([]byte, 4*len(pix))
	for i, v := range pix {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func unpackFloats(data string, want int) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(buf) != 4*want {
		return nil, fmt.Errorf("expected %d bytes, got %d", 4*want, len(buf))
	}

	pix := make([]float32, want)
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return pix, nil
}

// EncodeBatch converts frames to their wire form
func EncodeBatch(batch codec.Batch) []WireImage {
	out := make([]WireImage, len(batch))
	for i, f := range batch {
		out[i] = WireImage{Height: f.Height, Width: f.Width, Channels: f.Channels, Data: packFloats(f.Pix)}
	}
	return out
}

// DecodeBatch converts wire frames back to a batch
func DecodeBatch(images []WireImage) (codec.Batch, error) {
	batch := make(codec.Batch, len(images))
	for i, w := range images {
		if err := codec.CheckShape(w.Height, w.Width, w.Channels); err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", keys.ErrInvalidArgument, i, err)
		}
		pix, err := unpackFloats(w.Data, w.Height*w.Width*w.Channels)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", keys.ErrInvalidArgument, i, err)
		}
		batch[i] = codec.Frame{Height: w.Height, Width: w.Width, Channels: w.Channels, Pix: pix}
	}
	return batch, nil
}

// EncodeMasks converts masks to their wire form
func EncodeMasks(masks []codec.MaskPlane) []WireImage {
	out := make([]WireImage, len(masks))
	for i, m := range masks {
		out[i] = WireImage{Height: m.Height, Width: m.Width, Data: packFloats(m.Pix)}
	}
	return out
}

// DecodeMasks converts wire masks back to mask planes
func DecodeMasks(images []WireImage) ([]codec.MaskPlane, error) {
	masks := make([]codec.MaskPlane, len(images))
	for i, w := range images {
		if err := codec.CheckShape(w.Height, w.Width, 1); err != nil {
			return nil, fmt.Errorf("%w: mask %d: %v", keys.ErrInvalidArgument, i, err)
		}
		pix, err := unpackFloats(w.Data, w.Height*w.Width)
		if err != nil {
			return nil, fmt.Errorf("%w: mask %d: %v", keys.ErrInvalidArgument, i, err)
		}
		masks[i] = codec.MaskPlane{Height: w.Height, Width: w.Width, Pix: pix}
	}
	return masks, nil
}

// decodeInputs converts raw request inputs to typed values using def's ports.
// Inputs the node does not declare are dropped.
func decodeInputs(def Definition, raw map[string]json.RawMessage) (Values, error) {
	in := Values{}
	for name, msg := range raw {
		port, ok := def.Input(name)
		if !ok {
			continue
		}

		switch port.Type {
		case TypeImage:
			var images []WireImage
			if err := json.Unmarshal(msg, &images); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", keys.ErrInvalidArgument, name, err)
			}
			batch, err := DecodeBatch(images)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			in[name] = batch
		default:
			// Strings and host dictionaries are checked by the node schema
			var v interface{}
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", keys.ErrInvalidArgument, name, err)
			}
			in[name] = v
		}
	}
	return in, nil
}

// encodeOutputs converts node outputs to their wire form
func encodeOutputs(def Definition, out Values) (map[string]interface{}, error) {
	wire := make(map[string]interface{}, len(def.Outputs))
	for _, p := range def.Outputs {
		v, ok := out[p.Name]
		if !ok {
			return nil, fmt.Errorf("%s did not produce output %s", def.Name, p.Name)
		}

		switch p.Type {
		case TypeImage:
			batch, ok := v.(codec.Batch)
			if !ok {
				return nil, fmt.Errorf("%s: output %s is %T, want codec.Batch", def.Name, p.Name, v)
			}
			wire[p.Name] = EncodeBatch(batch)
		case TypeMask:
			masks, ok := v.([]codec.MaskPlane)
			if !ok {
				return nil, fmt.Errorf("%s: output %s is %T, want []codec.MaskPlane", def.Name, p.Name, v)
			}
			wire[p.Name] = EncodeMasks(masks)
		default:
			wire[p.Name] = v
		}
	}
	return wire, nil
}
