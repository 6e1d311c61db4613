package words

// Seed word lists. Small, hand-picked sets standing in for a
// CSV-loaded catalog; real deployments can extend Catalog with
// Catalog.add-equivalent loading from a data file at startup.

var englishWords = []string{
	"apple", "bicycle", "castle", "dolphin", "elephant", "forest", "guitar", "helicopter",
	"igloo", "jacket", "kangaroo", "lighthouse", "mountain", "notebook", "octopus", "penguin",
	"queen", "rainbow", "sandwich", "telescope", "umbrella", "volcano", "waterfall", "xylophone",
	"yacht", "zebra", "butterfly", "campfire", "dragon", "eyeglasses",
}

var spanishWords = []string{
	"manzana", "bicicleta", "castillo", "delfin", "elefante", "bosque", "guitarra",
	"helicoptero", "iglu", "chaqueta", "canguro", "faro", "montana", "cuaderno",
	"pulpo", "pinguino", "reina", "arcoiris", "sandwich", "telescopio",
}

var hindiDevanagariWords = []string{
	"सेब", "साइकिल", "किला", "डॉल्फिन", "हाथी", "जंगल", "गिटार", "हेलीकॉप्टर",
	"जैकेट", "कंगारू", "पहाड़", "नोटबुक", "ऑक्टोपस", "पेंगुइन", "रानी",
}

var hindiRomanWords = []string{
	"seb", "cycle", "qila", "hathi", "jangal", "pahaad", "kangaroo", "chaaqet",
}

var japaneseKanaWords = []string{
	"りんご", "じてんしゃ", "しろ", "いるか", "ぞう", "もり", "ギター", "ヘリコプター",
	"ジャケット", "カンガルー", "やま", "ノート", "タコ", "ペンギン", "じょおう",
}

var japaneseRomanWords = []string{
	"ringo", "jitensha", "shiro", "iruka", "zou", "mori", "gitaa", "herikoputaa",
}
