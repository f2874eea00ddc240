package media

type AssetType string

const (
	AssetTypeOriginal AssetType = "original"
	AssetTypePreview  AssetType = "preview"
)
