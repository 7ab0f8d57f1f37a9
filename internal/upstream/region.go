package upstream

// Region selects one of the two upstream route sets. Which one a user gets
// depends only on the leading digit of the stored game uid, so it is
// re-derived on every session construction and never cached.
type Region int

const (
	RegionDefault Region = iota
	RegionOverseas
)

// serverCodes maps a uid's leading digit to the API server code. A uid
// whose leading digit is not in this table is not acceptable as a linked
// uid at all.
var serverCodes = map[byte]string{
	'1': "cn_gf01",
	'2': "cn_gf01",
	'5': "cn_qd01",
	'6': "os_usa",
	'7': "os_euro",
	'8': "os_asia",
	'9': "os_cht",
}

var serverNames = map[byte]string{
	'1': "天空岛",
	'2': "天空岛",
	'5': "世界树",
	'6': "America",
	'7': "Europe",
	'8': "Asia",
	'9': "TW/HK/MO",
}

func RegionForUID(uid string) Region {
	if uid == "" {
		return RegionDefault
	}
	switch uid[0] {
	case '1', '2', '5':
		return RegionOverseas
	default:
		return RegionDefault
	}
}

func ServerCode(uid string) string {
	if uid == "" {
		return ""
	}
	return serverCodes[uid[0]]
}

func ServerName(uid string) string {
	if uid == "" {
		return ""
	}
	return serverNames[uid[0]]
}

// ValidUIDPrefix reports whether the leading digit belongs to a known
// server partition.
func ValidUIDPrefix(uid string) bool {
	if uid == "" {
		return false
	}
	_, ok := serverCodes[uid[0]]
	return ok
}
