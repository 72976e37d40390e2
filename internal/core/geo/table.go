package geo

type areaDistance struct {
	cityA, areaA string
	cityB, areaB string
	km           float64
}

type cityDistance struct {
	cityA, cityB string
	km           float64
}

// Road-adjusted approximations between common Dhaka service areas.
var defaultAreaTable = []areaDistance{
	{"Dhaka", "Gulshan", "Dhaka", "Banani", 2.5},
	{"Dhaka", "Gulshan", "Dhaka", "Dhanmondi", 9},
	{"Dhaka", "Gulshan", "Dhaka", "Mirpur", 10},
	{"Dhaka", "Gulshan", "Dhaka", "Uttara", 12},
	{"Dhaka", "Gulshan", "Dhaka", "Motijheel", 10},
	{"Dhaka", "Banani", "Dhaka", "Dhanmondi", 8},
	{"Dhaka", "Banani", "Dhaka", "Mirpur", 8},
	{"Dhaka", "Banani", "Dhaka", "Uttara", 11},
	{"Dhaka", "Dhanmondi", "Dhaka", "Mirpur", 8},
	{"Dhaka", "Dhanmondi", "Dhaka", "Motijheel", 6},
	{"Dhaka", "Dhanmondi", "Dhaka", "Mohammadpur", 3.5},
	{"Dhaka", "Mirpur", "Dhaka", "Uttara", 11},
	{"Dhaka", "Mirpur", "Dhaka", "Mohammadpur", 6},
	{"Dhaka", "Motijheel", "Dhaka", "Old Dhaka", 3},
	{"Dhaka", "Uttara", "Dhaka", "Motijheel", 19},
	{"Chattogram", "Agrabad", "Chattogram", "GEC", 4},
	{"Chattogram", "Agrabad", "Chattogram", "Nasirabad", 6},
}

var defaultCityTable = []cityDistance{
	{"Dhaka", "Gazipur", 35},
	{"Dhaka", "Narayanganj", 20},
	{"Dhaka", "Chattogram", 250},
	{"Dhaka", "Sylhet", 240},
	{"Dhaka", "Rajshahi", 255},
	{"Dhaka", "Khulna", 270},
}
