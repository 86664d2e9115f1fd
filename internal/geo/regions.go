package geo

import "github.com/wangyizhang/eco-weather-service/internal/models"

// Regions is the fixed table of Taiwan counties and cities with their
// geographic centers. Names match the locationName values the CWA weekly
// forecast dataset uses, so a resolved region can be queried upstream as-is.
// Order matters: coordinate resolution breaks distance ties by taking the
// first minimal entry.
var Regions = []models.CanonicalRegion{
	{Name: "臺北市", Lat: 25.032969, Lon: 121.565418},
	{Name: "新北市", Lat: 25.016982, Lon: 121.462786},
	{Name: "基隆市", Lat: 25.127603, Lon: 121.739183},
	{Name: "桃園市", Lat: 24.993628, Lon: 121.300979},
	{Name: "新竹縣", Lat: 24.838722, Lon: 121.017724},
	{Name: "新竹市", Lat: 24.813829, Lon: 120.967480},
	{Name: "苗栗縣", Lat: 24.560664, Lon: 120.821428},
	{Name: "臺中市", Lat: 24.147736, Lon: 120.673648},
	{Name: "彰化縣", Lat: 24.051796, Lon: 120.516135},
	{Name: "南投縣", Lat: 23.960998, Lon: 120.971864},
	{Name: "雲林縣", Lat: 23.709203, Lon: 120.431337},
	{Name: "嘉義縣", Lat: 23.451843, Lon: 120.255461},
	{Name: "嘉義市", Lat: 23.480047, Lon: 120.449111},
	{Name: "臺南市", Lat: 22.999728, Lon: 120.227028},
	{Name: "高雄市", Lat: 22.627278, Lon: 120.301435},
	{Name: "屏東縣", Lat: 22.551975, Lon: 120.548759},
	{Name: "宜蘭縣", Lat: 24.702107, Lon: 121.737750},
	{Name: "花蓮縣", Lat: 23.987158, Lon: 121.601571},
	{Name: "臺東縣", Lat: 22.761319, Lon: 121.143126},
	{Name: "澎湖縣", Lat: 23.571505, Lon: 119.579315},
	{Name: "金門縣", Lat: 24.440300, Lon: 118.323254},
	{Name: "連江縣", Lat: 26.158031, Lon: 119.951486},
}
