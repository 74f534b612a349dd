package classify

// File-type categories used by the heuristic fallback and by session
// statistics. Derived from the extension only; file content is never
// inspected.
const (
	CategoryDocument     = "document"
	CategorySpreadsheet  = "spreadsheet"
	CategoryPresentation = "presentation"
	CategoryImage        = "image"
	CategoryVideo        = "video"
	CategoryAudio        = "audio"
	CategoryArchive      = "archive"
	CategoryCode         = "code"
	CategoryOther        = "other"
)

var extCategories = map[string]string{
	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"txt": CategoryDocument, "rtf": CategoryDocument, "odt": CategoryDocument,
	"md": CategoryDocument,

	"xls": CategorySpreadsheet, "xlsx": CategorySpreadsheet,
	"csv": CategorySpreadsheet, "ods": CategorySpreadsheet,

	"ppt": CategoryPresentation, "pptx": CategoryPresentation,
	"key": CategoryPresentation, "odp": CategoryPresentation,

	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage,
	"gif": CategoryImage, "bmp": CategoryImage, "svg": CategoryImage,
	"webp": CategoryImage, "heic": CategoryImage, "tiff": CategoryImage,

	"mp4": CategoryVideo, "mov": CategoryVideo, "avi": CategoryVideo,
	"mkv": CategoryVideo, "webm": CategoryVideo,

	"mp3": CategoryAudio, "wav": CategoryAudio, "flac": CategoryAudio,
	"aac": CategoryAudio, "ogg": CategoryAudio, "m4a": CategoryAudio,

	"zip": CategoryArchive, "tar": CategoryArchive, "gz": CategoryArchive,
	"rar": CategoryArchive, "7z": CategoryArchive,

	"go": CategoryCode, "py": CategoryCode, "js": CategoryCode,
	"ts": CategoryCode, "java": CategoryCode, "c": CategoryCode,
	"cpp": CategoryCode, "rs": CategoryCode, "rb": CategoryCode,
	"sh": CategoryCode,
}

// FileCategory maps a normalized extension to its file-type category.
func FileCategory(ext string) string {
	if c, ok := extCategories[ext]; ok {
		return c
	}
	return CategoryOther
}
