package serialized

import "strconv"

// ClassID identifies a Unity class.
type ClassID int32

// Class IDs of the classes this module knows about. Any other value is
// still valid, it just has no name.
const (
	ClassGameObject    ClassID = 1
	ClassComponent     ClassID = 2
	ClassTransform     ClassID = 4
	ClassMaterial      ClassID = 21
	ClassTexture2D     ClassID = 28
	ClassMesh          ClassID = 43
	ClassShader        ClassID = 48
	ClassTextAsset     ClassID = 49
	ClassAudioClip     ClassID = 83
	ClassMonoBehaviour ClassID = 114
	ClassMonoScript    ClassID = 115
	ClassFont          ClassID = 128
	ClassAssetBundle   ClassID = 142
	ClassSprite        ClassID = 213
	ClassCanvas        ClassID = 223
	ClassRectTransform ClassID = 224
	ClassSpriteAtlas   ClassID = 687078895
)

var classNames = map[ClassID]string{
	ClassGameObject:    "GameObject",
	ClassComponent:     "Component",
	ClassTransform:     "Transform",
	ClassMaterial:      "Material",
	ClassTexture2D:     "Texture2D",
	ClassMesh:          "Mesh",
	ClassShader:        "Shader",
	ClassTextAsset:     "TextAsset",
	ClassAudioClip:     "AudioClip",
	ClassMonoBehaviour: "MonoBehaviour",
	ClassMonoScript:    "MonoScript",
	ClassFont:          "Font",
	ClassAssetBundle:   "AssetBundle",
	ClassSprite:        "Sprite",
	ClassCanvas:        "Canvas",
	ClassRectTransform: "RectTransform",
	ClassSpriteAtlas:   "SpriteAtlas",
}

func (c ClassID) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "ClassID(" + strconv.Itoa(int(c)) + ")"
}
