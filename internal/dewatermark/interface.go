package dewatermark

import "context"

type DewatermarkIface interface {
	EraseWatermark(ctx context.Context, req *EraseRequest) (*EraseResult, error)
	SaveLargeImage(ctx context.Context, req *SaveLargeImageRequest) (*SaveLargeImageResult, error)
}
