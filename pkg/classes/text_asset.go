package classes

// TextAsset holds a text or binary script. Script is kept as bytes since
// it is not required to be UTF-8.
type TextAsset struct {
	Name   string `unity:"m_Name"`
	Script []byte `unity:"m_Script"`
}

func (TextAsset) ClassName() string { return "TextAsset" }
