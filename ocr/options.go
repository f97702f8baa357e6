package ocr

import "strconv"

// WithPageSegMode sets the Tesseract page segmentation mode (PSM) variable.
// See https://tesseract-ocr.github.io/tessdoc/ImproveQuality.html#page-segmentation-method for values.
func WithPageSegMode(mode int) InputOption {
	return func(in *Input) {
		if mode <= 0 {
			return
		}
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata["tessedit_pageseg_mode"] = strconv.Itoa(mode)
	}
}

// WithWhitelist restricts recognition to the provided characters.
func WithWhitelist(chars string) InputOption {
	return func(in *Input) {
		if chars == "" {
			return
		}
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata["tessedit_char_whitelist"] = chars
	}
}
