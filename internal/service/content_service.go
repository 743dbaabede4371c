package service

import (
	"context"
	"fmt"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
)

type AssetURLSigner interface {
	AssetURL(ctx context.Context, key string) (string, error)
}

type ResolvedContent struct {
	Ref      models.ContentRef
	Asset    *models.ContentAsset
	AssetURL string
}

type ContentResolver interface {
	Resolve(ctx context.Context, ref models.ContentRef) (*ResolvedContent, error)
}

type contentResolver struct {
	content repository.ContentRepository
	signer  AssetURLSigner
}

func NewContentResolver(content repository.ContentRepository, signer AssetURLSigner) ContentResolver {
	return &contentResolver{content: content, signer: signer}
}

func (r *contentResolver) Resolve(ctx context.Context, ref models.ContentRef) (*ResolvedContent, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	asset, err := r.content.GetAsset(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrContentNotFound)
	}

	url, err := r.signer.AssetURL(ctx, asset.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("asset url for %s: %w", ref, err)
	}
	return &ResolvedContent{Ref: ref, Asset: asset, AssetURL: url}, nil
}
