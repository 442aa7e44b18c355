package classes

// AssetBundle is the manifest object of an asset bundle.
type AssetBundle struct {
	Name         string         `unity:"m_Name"`
	PreloadTable []AssetPPtr    `unity:"m_PreloadTable"`
	Container    AssetContainer `unity:"m_Container"`
}

func (AssetBundle) ClassName() string { return "AssetBundle" }

// AssetContainer maps asset paths to the bundle's assets.
type AssetContainer struct {
	Entries []AssetEntry `unity:"Array"`
}

func (AssetContainer) ClassName() string { return "map" }

// Lookup returns the info of the first entry with the given asset path.
func (c *AssetContainer) Lookup(path string) (AssetInfo, bool) {
	for _, e := range c.Entries {
		if e.Key == path {
			return e.Value, true
		}
	}
	return AssetInfo{}, false
}

// AssetEntry is one path to asset mapping.
type AssetEntry struct {
	Key   string    `unity:"first"`
	Value AssetInfo `unity:"second"`
}

func (AssetEntry) ClassName() string { return "pair" }

// AssetInfo locates an asset and the preload entries it depends on.
type AssetInfo struct {
	PreloadIndex int32     `unity:"preloadIndex"`
	PreloadSize  int32     `unity:"preloadSize"`
	Asset        AssetPPtr `unity:"asset"`
}

func (AssetInfo) ClassName() string { return "AssetInfo" }

// AssetPPtr references an object by file and path ID. FileID 0 refers to
// the file holding the reference.
type AssetPPtr struct {
	FileID int32 `unity:"m_FileID"`
	PathID int64 `unity:"m_PathID"`
}

func (AssetPPtr) ClassName() string { return "PPtr<Object>" }
