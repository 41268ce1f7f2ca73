package taxonomy

// Other is the specific tag used when a product belongs to a known general
// category but no specific category matched
const Other = "otro"

// HierarchyEntry is one (general, sub, options) row of the category hierarchy
type HierarchyEntry struct {
	General string
	Sub     string
	Options []string
}

// Tables holds the closed vocabularies the classifier works with.
// Every key and value is already normalized.
type Tables struct {
	// Audience maps a token to its canonical audience
	Audience map[string]string
	// GeneralCategories is the set of known general category names
	GeneralCategories []string
	// Overrides force a general category when the token is present
	Overrides map[string]string
	// Synonyms maps, per general category, a token to its specific tag
	Synonyms map[string]map[string]string
	// Hierarchy is walked in order by the hierarchical pass
	Hierarchy []HierarchyEntry
}

// DefaultTables returns the vocabularies used in production
func DefaultTables() Tables {
	return Tables{
		Audience: map[string]string{
			"hombre":     "hombre",
			"hombres":    "hombre",
			"caballero":  "hombre",
			"caballeros": "hombre",
			"masculino":  "hombre",
			"mujer":      "mujer",
			"mujeres":    "mujer",
			"dama":       "mujer",
			"damas":      "mujer",
			"femenino":   "mujer",
			"nino":       "nino",
			"ninos":      "nino",
			"nina":       "nino",
			"ninas":      "nino",
			"infantil":   "nino",
			"kids":       "nino",
			"bebe":       "bebe",
			"bebes":      "bebe",
			"unisex":     "unisex",
		},
		GeneralCategories: []string{
			"accesorios",
			"bazar",
			"belleza",
			"blanqueria",
			"calzado",
			"deportes",
			"electronica",
			"indumentaria",
			"juguetes",
			"mascotas",
		},
		Overrides: map[string]string{
			"bazar":      "bazar",
			"bano":       "bazar",
			"cocina":     "bazar",
			"blanqueria": "blanqueria",
			"dormitorio": "blanqueria",
		},
		Synonyms: map[string]map[string]string{
			"indumentaria": {
				"remera":     "remera",
				"remeras":    "remera",
				"camiseta":   "remera",
				"musculosa":  "remera",
				"camisa":     "camisa",
				"camisas":    "camisa",
				"buzo":       "buzo",
				"buzos":      "buzo",
				"hoodie":     "buzo",
				"sweater":    "buzo",
				"campera":    "campera",
				"camperas":   "campera",
				"chaqueta":   "campera",
				"pantalon":   "pantalon",
				"pantalones": "pantalon",
				"jean":       "pantalon",
				"jeans":      "pantalon",
				"jogger":     "pantalon",
				"short":      "short",
				"shorts":     "short",
				"bermuda":    "short",
				"pollera":    "pollera",
				"falda":      "pollera",
				"vestido":    "vestido",
				"vestidos":   "vestido",
				"pijama":     "pijama",
				"media":      "media",
				"medias":     "media",
			},
			"calzado": {
				"zapatilla":  "zapatilla",
				"zapatillas": "zapatilla",
				"sneaker":    "zapatilla",
				"zapato":     "zapato",
				"zapatos":    "zapato",
				"mocasin":    "zapato",
				"bota":       "bota",
				"botas":      "bota",
				"borcego":    "bota",
				"sandalia":   "sandalia",
				"sandalias":  "sandalia",
				"ojota":      "sandalia",
				"pantufla":   "pantufla",
			},
			"accesorios": {
				"mochila":   "mochila",
				"cartera":   "cartera",
				"bolso":     "cartera",
				"billetera": "billetera",
				"gorra":     "gorra",
				"gorro":     "gorra",
				"cinturon":  "cinturon",
				"reloj":     "reloj",
				"anteojos":  "anteojos",
				"lentes":    "anteojos",
				"bufanda":   "bufanda",
			},
			"bazar": {
				"olla":      "olla",
				"sarten":    "sarten",
				"cubierto":  "cubiertos",
				"cubiertos": "cubiertos",
				"plato":     "vajilla",
				"vaso":      "vajilla",
				"taza":      "vajilla",
				"termo":     "termo",
				"mate":      "mate",
				"toallero":  "bano",
				"jabonera":  "bano",
			},
			"blanqueria": {
				"sabana":    "sabana",
				"sabanas":   "sabana",
				"acolchado": "acolchado",
				"almohada":  "almohada",
				"frazada":   "frazada",
				"toalla":    "toalla",
				"toallon":   "toalla",
				"cortina":   "cortina",
				"mantel":    "mantel",
			},
			"deportes": {
				"pelota":     "pelota",
				"colchoneta": "colchoneta",
				"pesa":       "pesas",
				"mancuerna":  "pesas",
				"botella":    "botella",
				"bicicleta":  "bicicleta",
				"guante":     "guantes",
				"rodillera":  "protecciones",
				"canillera":  "protecciones",
				"suplemento": "suplementos",
				"proteina":   "suplementos",
			},
			"juguetes": {
				"muneca":        "muneca",
				"peluche":       "peluche",
				"rompecabezas":  "rompecabezas",
				"bloques":       "bloques",
				"auto":          "vehiculos",
				"juego de mesa": "juego de mesa",
			},
			"belleza": {
				"perfume":    "perfume",
				"fragancia":  "perfume",
				"crema":      "cuidado de la piel",
				"maquillaje": "maquillaje",
				"labial":     "maquillaje",
				"shampoo":    "cabello",
			},
			"electronica": {
				"auricular":   "audio",
				"auriculares": "audio",
				"parlante":    "audio",
				"cargador":    "cargadores",
				"cable":       "cables",
				"funda":       "fundas",
			},
			"mascotas": {
				"collar":   "collares",
				"correa":   "collares",
				"comedero": "comederos",
				"cucha":    "camas",
				"rascador": "juguetes",
			},
		},
		Hierarchy: []HierarchyEntry{
			{"indumentaria", "superior", []string{"remera", "camisa", "buzo", "campera", "musculosa", "sweater", "chaleco", Other}},
			{"indumentaria", "inferior", []string{"pantalon", "jean", "short", "pollera", "calza", "jogger", "bermuda", Other}},
			{"indumentaria", "interior", []string{"boxer", "bombacha", "corpino", "media", "pijama", Other}},
			{"indumentaria", "enterizo", []string{"vestido", "mono", "enterito", Other}},
			{"calzado", "urbano", []string{"zapatilla", "zapato", "mocasin", Other}},
			{"calzado", "verano", []string{"sandalia", "ojota", Other}},
			{"calzado", "invierno", []string{"bota", "borcego", "pantufla", Other}},
			{"bazar", "cocina", []string{"olla", "sarten", "cubierto", "utensilio", "plato", "vaso", "taza", Other}},
			{"bazar", "bano", []string{"toallero", "cortina", "organizador", "jabonera", Other}},
			{"bazar", "mesa", []string{"mantel", "individual", "plato", "vaso", "taza", Other}},
			{"blanqueria", "dormitorio", []string{"sabana", "acolchado", "almohada", "frazada", "cubrecama", Other}},
			{"blanqueria", "bano", []string{"toalla", "toallon", "bata", "alfombra", Other}},
			{"accesorios", "bolsos", []string{"mochila", "cartera", "bolso", "rinonera", "billetera", Other}},
			{"accesorios", "complementos", []string{"gorra", "cinturon", "bufanda", "reloj", "anteojos"}},
		},
	}
}
