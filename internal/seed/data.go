package seed

import "github.com/shopspring/decimal"

type CategorySeed struct {
	Name        string
	Slug        string
	Description string
	ImageURL    string
}

type ProductSeed struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	CategorySlug string
	ImageURL     string
	Quantity     int
	Weight       decimal.Decimal
	SKU          string
	Featured     bool
	Rating       decimal.Decimal
}

var Categories = []CategorySeed{
	{Name: "Dried Fruits", Slug: "dried-fruits", Description: "Premium quality dried fruits from Hunza Valley", ImageURL: "/uploads/apricot.jpeg"},
	{Name: "Nuts", Slug: "nuts", Description: "Organic nuts known for their exceptional quality", ImageURL: "/uploads/walnuts.jpeg"},
	{Name: "Embroidery", Slug: "embroidery", Description: "Traditional Hunzai embroidery and handcrafts", ImageURL: "/uploads/hat5.jpeg"},
	{Name: "Hunzai Dresses", Slug: "hunzai-dresses", Description: "Traditional clothing from Hunza Valley", ImageURL: "/uploads/dress.jpeg"},
	{Name: "Apple Jams", Slug: "apple-jams", Description: "Homemade apple jams and preserves from Hunza", ImageURL: "/uploads/applejam.jpeg"},
	{Name: "Silajeet", Slug: "silajeet", Description: "Pure Himalayan silajeet from the mountains of Hunza", ImageURL: "/uploads/silajeet.jpg"},
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var Products = []ProductSeed{
	{
		Name:         "Premium Dried Apricots",
		Description:  "Naturally sweet dried apricots from Hunza Valley, sun-dried to keep their flavor and nutrients.",
		Price:        dec("15.99"),
		CategorySlug: "dried-fruits",
		ImageURL:     "/uploads/apricot.jpeg",
		Quantity:     100,
		Weight:       dec("0.5"),
		SKU:          "DF-APR-001",
		Featured:     true,
		Rating:       dec("4.8"),
	},
	{
		Name:         "Hunza Walnuts",
		Description:  "Organic walnuts from the mountains of Hunza, rich in omega-3 fatty acids.",
		Price:        dec("12.99"),
		CategorySlug: "nuts",
		ImageURL:     "/uploads/walnuts.jpeg",
		Quantity:     80,
		Weight:       dec("0.5"),
		SKU:          "DF-WAL-001",
		Featured:     true,
		Rating:       dec("4.7"),
	},
	{
		Name:         "Dried Mulberries",
		Description:  "Sweet dried mulberries from Hunza Valley, packed with vitamins and minerals.",
		Price:        dec("9.99"),
		CategorySlug: "dried-fruits",
		ImageURL:     "/uploads/mulberries.jpeg",
		Quantity:     90,
		Weight:       dec("0.25"),
		SKU:          "DF-MUL-001",
		Rating:       dec("4.5"),
	},
	{
		Name:         "Traditional Hunzai Embroidery Scarf",
		Description:  "Hand-embroidered scarf with traditional Hunzai patterns. Each piece is unique.",
		Price:        dec("25.99"),
		CategorySlug: "embroidery",
		ImageURL:     "/uploads/scarf.jpeg",
		Quantity:     20,
		Weight:       dec("0.2"),
		SKU:          "EM-SCF-001",
		Featured:     true,
		Rating:       dec("4.9"),
	},
	{
		Name:         "Embroidered Wall Hanging",
		Description:  "Embroidered wall hanging featuring traditional Hunzai designs.",
		Price:        dec("34.99"),
		CategorySlug: "embroidery",
		ImageURL:     "/uploads/wall-hanging.jpeg",
		Quantity:     15,
		Weight:       dec("0.3"),
		SKU:          "EM-WLH-001",
		Rating:       dec("4.7"),
	},
	{
		Name:         "Traditional Hunzai Dress",
		Description:  "Authentic Hunzai dress made with high-quality fabric and traditional designs.",
		Price:        dec("79.99"),
		CategorySlug: "hunzai-dresses",
		ImageURL:     "/uploads/dress.jpeg",
		Quantity:     10,
		Weight:       dec("0.8"),
		SKU:          "HD-DRS-001",
		Featured:     true,
		Rating:       dec("4.9"),
	},
	{
		Name:         "Homemade Apple Jam",
		Description:  "Homemade jam from organic Hunza apples with no preservatives or artificial flavors.",
		Price:        dec("8.99"),
		CategorySlug: "apple-jams",
		ImageURL:     "/uploads/applejam.jpeg",
		Quantity:     50,
		Weight:       dec("0.4"),
		SKU:          "AJ-JAM-001",
		Featured:     true,
		Rating:       dec("4.6"),
	},
	{
		Name:         "Pure Silajeet",
		Description:  "Natural silajeet harvested from the mountains of Hunza.",
		Price:        dec("19.99"),
		CategorySlug: "silajeet",
		ImageURL:     "/uploads/silajeet.jpg",
		Quantity:     30,
		Weight:       dec("0.1"),
		SKU:          "SL-PUR-001",
		Featured:     true,
		Rating:       dec("4.8"),
	},
}
