package serialized

import "strings"

// commonStrings is Unity's built-in string table. Type tree string offsets
// with the top bit set index into it instead of the file's own buffer.
// Entries are NUL terminated and their order fixes every offset.
const commonStrings = "" +
	"AABB\x00" +
	"AnimationClip\x00" +
	"AnimationCurve\x00" +
	"AnimationState\x00" +
	"Array\x00" +
	"Base\x00" +
	"BitField\x00" +
	"bitset\x00" +
	"bool\x00" +
	"char\x00" +
	"ColorRGBA\x00" +
	"Component\x00" +
	"data\x00" +
	"deque\x00" +
	"double\x00" +
	"dynamic_array\x00" +
	"FastPropertyName\x00" +
	"first\x00" +
	"float\x00" +
	"Font\x00" +
	"GameObject\x00" +
	"Generic Mono\x00" +
	"GradientNEW\x00" +
	"GUID\x00" +
	"GUIStyle\x00" +
	"int\x00" +
	"list\x00" +
	"long long\x00" +
	"map\x00" +
	"Matrix4x4f\x00" +
	"MdFour\x00" +
	"MonoBehaviour\x00" +
	"MonoScript\x00" +
	"m_ByteSize\x00" +
	"m_Curve\x00" +
	"m_EditorClassIdentifier\x00" +
	"m_EditorHideFlags\x00" +
	"m_Enabled\x00" +
	"m_ExtensionPtr\x00" +
	"m_GameObject\x00" +
	"m_Index\x00" +
	"m_IsArray\x00" +
	"m_IsStatic\x00" +
	"m_MetaFlag\x00" +
	"m_Name\x00" +
	"m_ObjectHideFlags\x00" +
	"m_PrefabInternal\x00" +
	"m_PrefabParentObject\x00" +
	"m_Script\x00" +
	"m_StaticEditorFlags\x00" +
	"m_Type\x00" +
	"m_Version\x00" +
	"Object\x00" +
	"pair\x00" +
	"PPtr<Component>\x00" +
	"PPtr<GameObject>\x00" +
	"PPtr<Material>\x00" +
	"PPtr<MonoBehaviour>\x00" +
	"PPtr<MonoScript>\x00" +
	"PPtr<Object>\x00" +
	"PPtr<Prefab>\x00" +
	"PPtr<Sprite>\x00" +
	"PPtr<TextAsset>\x00" +
	"PPtr<Texture>\x00" +
	"PPtr<Texture2D>\x00" +
	"PPtr<Transform>\x00" +
	"Prefab\x00" +
	"Quaternionf\x00" +
	"Rectf\x00" +
	"RectInt\x00" +
	"RectOffset\x00" +
	"second\x00" +
	"set\x00" +
	"short\x00" +
	"size\x00" +
	"SInt16\x00" +
	"SInt32\x00" +
	"SInt64\x00" +
	"SInt8\x00" +
	"staticvector\x00" +
	"string\x00" +
	"TextAsset\x00" +
	"TextMesh\x00" +
	"Texture\x00" +
	"Texture2D\x00" +
	"Transform\x00" +
	"TypelessData\x00" +
	"UInt16\x00" +
	"UInt32\x00" +
	"UInt64\x00" +
	"UInt8\x00" +
	"unsigned int\x00" +
	"unsigned long long\x00" +
	"unsigned short\x00" +
	"vector\x00" +
	"Vector2f\x00" +
	"Vector3f\x00" +
	"Vector4f\x00" +
	"m_ScriptingClassIdentifier\x00" +
	"Gradient\x00" +
	"Type*\x00" +
	"int2_storage\x00" +
	"int3_storage\x00" +
	"BoundsInt\x00" +
	"m_CorrespondingSourceObject\x00" +
	"m_PrefabInstance\x00" +
	"m_PrefabAsset\x00" +
	"FileSize\x00" +
	"Hash128\x00"

// CommonString returns the common string starting at offset. It reports
// false unless offset is the first byte of an entry.
func CommonString(offset uint32) (string, bool) {
	if offset >= uint32(len(commonStrings)) {
		return "", false
	}
	if offset != 0 && commonStrings[offset-1] != 0 {
		return "", false
	}

	rest := commonStrings[offset:]
	end := strings.IndexByte(rest, 0)
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}
