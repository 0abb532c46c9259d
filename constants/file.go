package constants

import (
	"mime"
	"strings"
)

// Media types the dispatcher routes on.
const (
	MediaTypePDF      = "application/pdf"
	MediaTypeImagePNG = "image/png"
	MediaTypeImageJPG = "image/jpeg"
	MediaTypeImageTIF = "image/tiff"
	MediaTypeImageBMP = "image/bmp"
	MediaTypeImageWEB = "image/webp"
	MediaTypeImageGIF = "image/gif"
	MediaTypeImageHEI = "image/heic"
	MediaTypeImageHEF = "image/heif"
)

// Source formats recorded on documents and extract jobs.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for ingestion, mapped to media type.
var AllowedExtensions = map[string]string{
	"pdf":  MediaTypePDF,
	"png":  MediaTypeImagePNG,
	"jpg":  MediaTypeImageJPG,
	"jpeg": MediaTypeImageJPG,
	"tif":  MediaTypeImageTIF,
	"tiff": MediaTypeImageTIF,
	"bmp":  MediaTypeImageBMP,
	"webp": MediaTypeImageWEB,
	"gif":  MediaTypeImageGIF,
	"heic": MediaTypeImageHEI,
	"heif": MediaTypeImageHEF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeForExt returns the media type for an extension, or "" when unsupported.
func MediaTypeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// BaseMediaType strips parameters and lowercases a declared media type.
func BaseMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

// MapMediaTypeToFormat classifies a media type into PDF, IMAGE or "".
func MapMediaTypeToFormat(mediaType string) string {
	mt := BaseMediaType(mediaType)
	switch {
	case mt == MediaTypePDF:
		return PDF
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	default:
		return ""
	}
}

// IsHEIC reports whether mediaType needs converting before it can be decoded.
func IsHEIC(mediaType string) bool {
	switch BaseMediaType(mediaType) {
	case MediaTypeImageHEI, MediaTypeImageHEF:
		return true
	}
	return false
}
