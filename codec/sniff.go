package codec

import (
	"bytes"

	"imco/format"
)

type magic struct {
	prefix []byte
	// offset of prefix inside the header
	offset int
	format format.Format
}

var magics = []magic{
	{[]byte("\x89PNG\r\n\x1a\n"), 0, format.PNG},
	{[]byte("\xff\xd8\xff"), 0, format.JPEG},
	{[]byte("GIF87a"), 0, format.GIF},
	{[]byte("GIF89a"), 0, format.GIF},
	{[]byte("WEBP"), 8, format.WEBP},
	{[]byte("II*\x00"), 0, format.TIFF},
	{[]byte("MM\x00*"), 0, format.TIFF},
	{[]byte("ftypavif"), 4, format.AVIF},
	{[]byte("ftypavis"), 4, format.AVIF},
	{[]byte("BM"), 0, format.BMP},
	{[]byte("DDS "), 0, format.DDS},
	{[]byte("#?RADIANCE"), 0, format.HDR},
	{[]byte("#?RGBE"), 0, format.HDR},
	{[]byte("v/1\x01"), 0, format.OpenEXR},
	{[]byte("farbfeld"), 0, format.Farbfeld},
	{[]byte("qoif"), 0, format.QOI},
	{[]byte("\x00\x00\x01\x00"), 0, format.ICO},
	{[]byte("P1"), 0, format.PNM},
	{[]byte("P2"), 0, format.PNM},
	{[]byte("P3"), 0, format.PNM},
	{[]byte("P4"), 0, format.PNM},
	{[]byte("P5"), 0, format.PNM},
	{[]byte("P6"), 0, format.PNM},
	{[]byte("P7"), 0, format.PNM},
}

// Sniff guesses a format from the leading bytes of an image file.
func Sniff(data []byte) format.Format {
	for _, m := range magics {
		end := m.offset + len(m.prefix)
		if len(data) >= end && bytes.Equal(data[m.offset:end], m.prefix) {
			if m.format == format.WEBP && !bytes.HasPrefix(data, []byte("RIFF")) {
				continue
			}
			return m.format
		}
	}
	return format.Unknown
}
