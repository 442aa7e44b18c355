package classes

import "strconv"

// TextureFormat is the pixel format of a Texture2D, as Unity numbers it.
type TextureFormat int32

const (
	FormatUnknown           TextureFormat = -1
	FormatAlpha8            TextureFormat = 1
	FormatARGB4444          TextureFormat = 2
	FormatRGB24             TextureFormat = 3
	FormatRGBA32            TextureFormat = 4
	FormatARGB32            TextureFormat = 5
	FormatRGB565            TextureFormat = 7
	FormatR16               TextureFormat = 9
	FormatDXT1              TextureFormat = 10
	FormatDXT5              TextureFormat = 12
	FormatRGBA4444          TextureFormat = 13
	FormatBGRA32            TextureFormat = 14
	FormatRHalf             TextureFormat = 15
	FormatRGHalf            TextureFormat = 16
	FormatRGBAHalf          TextureFormat = 17
	FormatRFloat            TextureFormat = 18
	FormatRGFloat           TextureFormat = 19
	FormatRGBAFloat         TextureFormat = 20
	FormatYUY2              TextureFormat = 21
	FormatRGB9e5Float       TextureFormat = 22
	FormatBC6H              TextureFormat = 24
	FormatBC7               TextureFormat = 25
	FormatBC4               TextureFormat = 26
	FormatBC5               TextureFormat = 27
	FormatDXT1Crunched      TextureFormat = 28
	FormatDXT5Crunched      TextureFormat = 29
	FormatPVRTCRGB2         TextureFormat = 30
	FormatPVRTCRGBA2        TextureFormat = 31
	FormatPVRTCRGB4         TextureFormat = 32
	FormatPVRTCRGBA4        TextureFormat = 33
	FormatETCRGB4           TextureFormat = 34
	FormatATCRGB4           TextureFormat = 35
	FormatATCRGBA8          TextureFormat = 36
	FormatEACR              TextureFormat = 41
	FormatEACRSigned        TextureFormat = 42
	FormatEACRG             TextureFormat = 43
	FormatEACRGSigned       TextureFormat = 44
	FormatETC2RGB           TextureFormat = 45
	FormatETC2RGBA1         TextureFormat = 46
	FormatETC2RGBA8         TextureFormat = 47
	FormatASTCRGB4x4        TextureFormat = 48
	FormatASTCRGB5x5        TextureFormat = 49
	FormatASTCRGB6x6        TextureFormat = 50
	FormatASTCRGB8x8        TextureFormat = 51
	FormatASTCRGB10x10      TextureFormat = 52
	FormatASTCRGB12x12      TextureFormat = 53
	FormatASTCRGBA4x4       TextureFormat = 54
	FormatASTCRGBA5x5       TextureFormat = 55
	FormatASTCRGBA6x6       TextureFormat = 56
	FormatASTCRGBA8x8       TextureFormat = 57
	FormatASTCRGBA10x10     TextureFormat = 58
	FormatASTCRGBA12x12     TextureFormat = 59
	FormatETCRGB43DS        TextureFormat = 60
	FormatETCRGBA83DS       TextureFormat = 61
	FormatRG16              TextureFormat = 62
	FormatR8                TextureFormat = 63
	FormatETCRGB4Crunched   TextureFormat = 64
	FormatETC2RGBA8Crunched TextureFormat = 65
	FormatASTCHDR4x4        TextureFormat = 66
	FormatASTCHDR5x5        TextureFormat = 67
	FormatASTCHDR6x6        TextureFormat = 68
	FormatASTCHDR8x8        TextureFormat = 69
	FormatASTCHDR10x10      TextureFormat = 70
	FormatASTCHDR12x12      TextureFormat = 71
)

var formatNames = map[TextureFormat]string{
	FormatAlpha8:            "Alpha8",
	FormatARGB4444:          "ARGB4444",
	FormatRGB24:             "RGB24",
	FormatRGBA32:            "RGBA32",
	FormatARGB32:            "ARGB32",
	FormatRGB565:            "RGB565",
	FormatR16:               "R16",
	FormatDXT1:              "DXT1",
	FormatDXT5:              "DXT5",
	FormatRGBA4444:          "RGBA4444",
	FormatBGRA32:            "BGRA32",
	FormatRHalf:             "RHalf",
	FormatRGHalf:            "RGHalf",
	FormatRGBAHalf:          "RGBAHalf",
	FormatRFloat:            "RFloat",
	FormatRGFloat:           "RGFloat",
	FormatRGBAFloat:         "RGBAFloat",
	FormatYUY2:              "YUY2",
	FormatRGB9e5Float:       "RGB9e5Float",
	FormatBC6H:              "BC6H",
	FormatBC7:               "BC7",
	FormatBC4:               "BC4",
	FormatBC5:               "BC5",
	FormatDXT1Crunched:      "DXT1Crunched",
	FormatDXT5Crunched:      "DXT5Crunched",
	FormatPVRTCRGB2:         "PVRTC_RGB2",
	FormatPVRTCRGBA2:        "PVRTC_RGBA2",
	FormatPVRTCRGB4:         "PVRTC_RGB4",
	FormatPVRTCRGBA4:        "PVRTC_RGBA4",
	FormatETCRGB4:           "ETC_RGB4",
	FormatATCRGB4:           "ATC_RGB4",
	FormatATCRGBA8:          "ATC_RGBA8",
	FormatEACR:              "EAC_R",
	FormatEACRSigned:        "EAC_R_SIGNED",
	FormatEACRG:             "EAC_RG",
	FormatEACRGSigned:       "EAC_RG_SIGNED",
	FormatETC2RGB:           "ETC2_RGB",
	FormatETC2RGBA1:         "ETC2_RGBA1",
	FormatETC2RGBA8:         "ETC2_RGBA8",
	FormatASTCRGB4x4:        "ASTC_RGB_4x4",
	FormatASTCRGB5x5:        "ASTC_RGB_5x5",
	FormatASTCRGB6x6:        "ASTC_RGB_6x6",
	FormatASTCRGB8x8:        "ASTC_RGB_8x8",
	FormatASTCRGB10x10:      "ASTC_RGB_10x10",
	FormatASTCRGB12x12:      "ASTC_RGB_12x12",
	FormatASTCRGBA4x4:       "ASTC_RGBA_4x4",
	FormatASTCRGBA5x5:       "ASTC_RGBA_5x5",
	FormatASTCRGBA6x6:       "ASTC_RGBA_6x6",
	FormatASTCRGBA8x8:       "ASTC_RGBA_8x8",
	FormatASTCRGBA10x10:     "ASTC_RGBA_10x10",
	FormatASTCRGBA12x12:     "ASTC_RGBA_12x12",
	FormatETCRGB43DS:        "ETC_RGB4_3DS",
	FormatETCRGBA83DS:       "ETC_RGBA8_3DS",
	FormatRG16:              "RG16",
	FormatR8:                "R8",
	FormatETCRGB4Crunched:   "ETC_RGB4Crunched",
	FormatETC2RGBA8Crunched: "ETC2_RGBA8Crunched",
	FormatASTCHDR4x4:        "ASTC_HDR_4x4",
	FormatASTCHDR5x5:        "ASTC_HDR_5x5",
	FormatASTCHDR6x6:        "ASTC_HDR_6x6",
	FormatASTCHDR8x8:        "ASTC_HDR_8x8",
	FormatASTCHDR10x10:      "ASTC_HDR_10x10",
	FormatASTCHDR12x12:      "ASTC_HDR_12x12",
}

// String returns Unity's name for the format.
func (f TextureFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	if f == FormatUnknown {
		return "UnknownType"
	}
	return "TextureFormat(" + strconv.Itoa(int(f)) + ")"
}
