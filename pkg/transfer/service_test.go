package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/s3_connector/pkg/codec"
	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/storage"
	"github.com/williamokano/s3_connector/pkg/storage/mocks"
)

var testResolver = keys.Resolver{
	Prefix: "p/",
	Bucket: "b",
	Region: "eu-west-1",
}

func newMockGateway(t *testing.T) *mocks.MockGateway {
	gw := mocks.NewMockGateway(t)
	gw.On("Name").Return("mock").Maybe()
	gw.On("Type").Return("mock").Maybe()
	return gw
}

func solidFrame(h, w, channels int, v float32) codec.Frame {
	f := codec.NewFrame(h, w, channels)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestService_Upload(t *testing.T) {
	t.Run("single_frame", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Put", mock.Anything, "p/out/img.png", mock.Anything, "image/png").Return(nil).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		// Execute
		res, err := svc.Upload(context.Background(), codec.Batch{solidFrame(2, 2, 3, 0.5)}, keys.ByFolder{Folder: "out", Name: "img"})

		// Verify
		require.NoError(t, err)
		assert.Equal(t, "p/out/img.png", res.Key)
		assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/p/out/img.png", res.URL)
	})

	t.Run("batch_indexes_keys_and_returns_last", func(t *testing.T) {
		gw := newMockGateway(t)
		var order []string
		gw.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "image/png").
			Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
			Return(nil).Times(3)

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())
		batch := codec.Batch{solidFrame(1, 1, 3, 0), solidFrame(1, 1, 3, 0.5), solidFrame(1, 1, 4, 1)}

		res, err := svc.Upload(context.Background(), batch, keys.ByFullPath{Path: "/runs/42/shot.jpg"})

		require.NoError(t, err)
		assert.Equal(t, []string{"p/runs/42/shot_0.jpg", "p/runs/42/shot_1.jpg", "p/runs/42/shot_2.jpg"}, order)
		assert.Equal(t, "p/runs/42/shot_2.jpg", res.Key)
	})

	t.Run("body_is_png", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Put", mock.Anything, "p/img.png", mock.MatchedBy(func(body []byte) bool {
			frame, _, err := codec.Decode(body)
			return err == nil && frame.Width == 3 && frame.Height == 2
		}), "image/png").Return(nil).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		_, err := svc.Upload(context.Background(), codec.Batch{solidFrame(2, 3, 3, 0.2)}, keys.ByFolder{Name: "img"})
		require.NoError(t, err)
	})

	t.Run("empty_batch", func(t *testing.T) {
		svc := New(testResolver, StaticOpener(newMockGateway(t)), zerolog.Nop())

		_, err := svc.Upload(context.Background(), nil, keys.ByFolder{Name: "img"})
		assert.ErrorIs(t, err, keys.ErrInvalidArgument)
	})

	t.Run("missing_bucket_never_opens_gateway", func(t *testing.T) {
		opened := 0
		open := func(context.Context) (storage.Gateway, error) {
			opened++
			return nil, errors.New("unexpected")
		}
		svc := New(keys.Resolver{}, open, zerolog.Nop())

		_, err := svc.Upload(context.Background(), codec.Batch{solidFrame(1, 1, 3, 0)}, keys.ByFolder{Name: "img"})

		assert.ErrorIs(t, err, keys.ErrConfiguration)
		assert.Equal(t, 0, opened)
	})

	t.Run("empty_name", func(t *testing.T) {
		svc := New(testResolver, StaticOpener(newMockGateway(t)), zerolog.Nop())

		_, err := svc.Upload(context.Background(), codec.Batch{solidFrame(1, 1, 3, 0)}, keys.ByFolder{Folder: "out", Name: "  "})
		assert.ErrorIs(t, err, keys.ErrInvalidArgument)
	})

	t.Run("invalid_frame", func(t *testing.T) {
		svc := New(testResolver, StaticOpener(newMockGateway(t)), zerolog.Nop())

		_, err := svc.Upload(context.Background(), codec.Batch{codec.NewFrame(1, 1, 2)}, keys.ByFolder{Name: "img"})
		assert.ErrorIs(t, err, codec.ErrInvalidFrame)
	})

	t.Run("put_failure_keeps_provider_message", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Put", mock.Anything, "p/img_0.png", mock.Anything, mock.Anything).Return(nil).Once()
		gw.On("Put", mock.Anything, "p/img_1.png", mock.Anything, mock.Anything).
			Return(storage.Transport(errors.New("Access Denied"))).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())
		batch := codec.Batch{solidFrame(1, 1, 3, 0), solidFrame(1, 1, 3, 0), solidFrame(1, 1, 3, 0)}

		_, err := svc.Upload(context.Background(), batch, keys.ByFolder{Name: "img"})

		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrTransport)
		assert.Contains(t, err.Error(), "failed to upload to S3")
		assert.Contains(t, err.Error(), "Access Denied")
		// the third frame is never attempted
		gw.AssertNumberOfCalls(t, "Put", 2)
	})

	t.Run("open_failure", func(t *testing.T) {
		open := func(context.Context) (storage.Gateway, error) {
			return nil, storage.ErrInvalidConfig
		}
		svc := New(testResolver, open, zerolog.Nop())

		_, err := svc.Upload(context.Background(), codec.Batch{solidFrame(1, 1, 3, 0)}, keys.ByFolder{Name: "img"})
		assert.ErrorIs(t, err, storage.ErrInvalidConfig)
	})
}

func TestService_Load(t *testing.T) {
	t.Run("decodes_object", func(t *testing.T) {
		body, err := codec.Encode(solidFrame(3, 4, 4, 0.4))
		require.NoError(t, err)

		gw := newMockGateway(t)
		gw.On("Get", mock.Anything, "p/in/photo.webp").Return(body, nil).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		res, err := svc.Load(context.Background(), keys.ByFolder{Folder: "/in/", Name: "photo.webp"})

		require.NoError(t, err)
		assert.Equal(t, "p/in/photo.webp", res.Key)
		require.Len(t, res.Images, 1)
		require.Len(t, res.Masks, 1)
		assert.Equal(t, 3, res.Images[0].Channels)
		assert.Equal(t, 4, res.Masks[0].Width)
		assert.InDelta(t, 0.6, res.Masks[0].At(0, 0), 1.0/255)
	})

	t.Run("name_used_verbatim", func(t *testing.T) {
		body, err := codec.Encode(solidFrame(1, 1, 3, 0))
		require.NoError(t, err)

		gw := newMockGateway(t)
		gw.On("Get", mock.Anything, "p/raw").Return(body, nil).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		_, err = svc.Load(context.Background(), keys.ByFullPath{Path: "raw"})
		require.NoError(t, err)
	})

	t.Run("not_found_names_key", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Get", mock.Anything, "p/missing.png").Return(nil, storage.NotFound("p/missing.png", nil)).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		_, err := svc.Load(context.Background(), keys.ByFullPath{Path: "missing.png"})

		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, "image not found in S3: p/missing.png", err.Error())

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "p/missing.png", nf.Key)
	})

	t.Run("transport_failure", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Get", mock.Anything, mock.Anything).
			Return(nil, storage.Transport(errors.New("dial tcp: i/o timeout"))).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		_, err := svc.Load(context.Background(), keys.ByFullPath{Path: "a.png"})

		assert.ErrorIs(t, err, storage.ErrTransport)
		assert.NotErrorIs(t, err, storage.ErrNotFound)
		assert.Contains(t, err.Error(), "failed to load from S3")
		assert.Contains(t, err.Error(), "i/o timeout")
	})

	t.Run("undecodable_object", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Get", mock.Anything, "p/a.png").Return([]byte("<html>error</html>"), nil).Once()

		svc := New(testResolver, StaticOpener(gw), zerolog.Nop())

		_, err := svc.Load(context.Background(), keys.ByFullPath{Path: "a.png"})
		assert.ErrorIs(t, err, codec.ErrDecode)
	})

	t.Run("missing_path", func(t *testing.T) {
		svc := New(testResolver, StaticOpener(newMockGateway(t)), zerolog.Nop())

		_, err := svc.Load(context.Background(), keys.ByFullPath{Path: " / "})
		assert.ErrorIs(t, err, keys.ErrInvalidArgument)
	})
}

func TestService_Gateway(t *testing.T) {
	t.Run("opened_once_and_reused", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(2)
		gw.On("Close").Return(nil).Once()

		opened := 0
		open := func(context.Context) (storage.Gateway, error) {
			opened++
			return gw, nil
		}
		svc := New(testResolver, open, zerolog.Nop())

		for i := 0; i < 2; i++ {
			_, err := svc.Upload(context.Background(), codec.Batch{solidFrame(1, 1, 3, 0)}, keys.ByFolder{Name: "img"})
			require.NoError(t, err)
		}

		assert.Equal(t, 1, opened)
		require.NoError(t, svc.Close())
		// closing twice is a no-op
		require.NoError(t, svc.Close())
	})

	t.Run("failed_open_is_retried", func(t *testing.T) {
		gw := newMockGateway(t)
		gw.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		attempts := 0
		open := func(context.Context) (storage.Gateway, error) {
			attempts++
			if attempts == 1 {
				return nil, storage.Transport(errors.New("connection refused"))
			}
			return gw, nil
		}
		svc := New(testResolver, open, zerolog.Nop())
		batch := codec.Batch{solidFrame(1, 1, 3, 0)}

		_, err := svc.Upload(context.Background(), batch, keys.ByFolder{Name: "img"})
		require.Error(t, err)

		_, err = svc.Upload(context.Background(), batch, keys.ByFolder{Name: "img"})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})
}
