package fingerprint

type platform string

const (
	windows platform = "windows"
	mac     platform = "mac"
	linux   platform = "linux"
)

// FallbackAcceptLanguage is sent for countries without a profile
const FallbackAcceptLanguage = "en-US,en;q=0.9"

// chromeVersions is the pool a user agent version is drawn from on every call
var chromeVersions = []string{
	"120.0.6099.109", "120.0.6099.199", "121.0.6167.85", "121.0.6167.160",
	"122.0.6261.69", "122.0.6261.112", "123.0.6312.58", "123.0.6312.105",
	"124.0.6367.60", "124.0.6367.118", "125.0.6422.60", "125.0.6422.113",
}

var userAgents = map[platform]string{
	windows: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
	mac:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
	linux:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
}

var platformHints = map[platform]string{
	windows: `"Windows"`,
	mac:     `"macOS"`,
	linux:   `"Linux"`,
}

type profile struct {
	platform       platform
	acceptLanguage string
}

var fallbackProfile = profile{windows, FallbackAcceptLanguage}

var profiles = map[string]profile{
	"US": {windows, "en-US,en;q=0.9"},
	"GB": {windows, "en-GB,en;q=0.9"},
	"CA": {windows, "en-CA,en;q=0.9"},
	"AU": {windows, "en-AU,en;q=0.9"},
	"DE": {windows, "de-DE,de;q=0.9,en;q=0.8"},
	"FR": {windows, "fr-FR,fr;q=0.9,en;q=0.8"},
	"ES": {windows, "es-ES,es;q=0.9,en;q=0.8"},
	"IT": {windows, "it-IT,it;q=0.9,en;q=0.8"},
	"PT": {windows, "pt-PT,pt;q=0.9,en;q=0.8"},
	"BR": {windows, "pt-BR,pt;q=0.9,en;q=0.8"},
	"NL": {windows, "nl-NL,nl;q=0.9,en;q=0.8"},
	"PL": {windows, "pl-PL,pl;q=0.9,en;q=0.8"},
	"RU": {windows, "ru-RU,ru;q=0.9,en;q=0.8"},
	"UA": {windows, "uk-UA,uk;q=0.9,en;q=0.8"},
	"JP": {mac, "ja-JP,ja;q=0.9,en;q=0.8"},
	"KR": {windows, "ko-KR,ko;q=0.9,en;q=0.8"},
	"CN": {windows, "zh-CN,zh;q=0.9,en;q=0.8"},
	"TW": {windows, "zh-TW,zh;q=0.9,en;q=0.8"},
	"IN": {windows, "en-IN,en;q=0.9,hi;q=0.8"},
	"ID": {windows, "id-ID,id;q=0.9,en;q=0.8"},
	"TH": {windows, "th-TH,th;q=0.9,en;q=0.8"},
	"VN": {windows, "vi-VN,vi;q=0.9,en;q=0.8"},
	"TR": {windows, "tr-TR,tr;q=0.9,en;q=0.8"},
	"MX": {windows, "es-MX,es;q=0.9,en;q=0.8"},
	"AR": {windows, "es-AR,es;q=0.9,en;q=0.8"},
	"IL": {windows, "he-IL,he;q=0.9,en;q=0.8"},
	"SE": {windows, "sv-SE,sv;q=0.9,en;q=0.8"},
	"NO": {windows, "nb-NO,nb;q=0.9,en;q=0.8"},
}
