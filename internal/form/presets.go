package form

// numeric builds a text field whose renderer default is "0" and whose label
// does not change with the fill state.
func numeric(name, label, prompt string) Field {
	return Field{Name: name, Kind: KindText, Prompt: prompt, Label: label, Default: DefaultNumber}
}

func amountPrompt(what string) string {
	return "لطفا مقدار " + what + " را وارد کنید"
}

// Presets returns the built-in product forms.
func Presets() []Definition {
	return []Definition{
		{
			Product:  "currency",
			Script:   "./src/craft/Currency.py",
			Template: "./assets/CURRENCY_TEMPLATE.png",
			Fields: []Field{
				numeric("Dollar", "دلار", amountPrompt("دلار")),
				numeric("Euro", "یورو", amountPrompt("یورو")),
				numeric("Lira", "لیر", amountPrompt("لیر")),
				numeric("Dinar", "دینار عراق", amountPrompt("دینار عراق")),
				numeric("Dirham", "درهم", amountPrompt("درهم")),
				numeric("ChineseYuan", "یوان چین", amountPrompt("یوان چین")),
				numeric("SaudiRiyal", "ریال سعودی", amountPrompt("ریال سعودی")),
			},
		},
		{
			Product:  "crypto",
			Script:   "./src/craft/crypto.py",
			Template: "./assets/CRYPTO_TEMPLATE.png",
			Fields: []Field{
				numeric("Bitcoin", "بیت‌کوین", amountPrompt("بیت‌کوین")),
				numeric("Ethereum", "اتریوم", amountPrompt("اتریوم")),
				numeric("Tether", "تتر", amountPrompt("تتر")),
				numeric("Ripple", "ریپل", amountPrompt("ریپل")),
				numeric("BinanceCoin", "بایننس‌کوین", amountPrompt("بایننس‌کوین")),
				numeric("Solana", "سولانا", amountPrompt("سولانا")),
				numeric("USD_Coin", "یواس‌دی کوین", amountPrompt("یواس‌دی کوین")),
				numeric("Dogecoin", "دوج کوین", amountPrompt("دوج کوین")),
			},
		},
		{
			Product:  "gold",
			Script:   "./src/craft/gold.py",
			Template: "./assets/GOLD_TEMPLATE.png",
			Fields: []Field{
				numeric("Gold", "مثقال طلا", amountPrompt("مثقال طلا")),
				numeric("Coin", "سکه", amountPrompt("سکه")),
				numeric("HalfCoin", "نیم‌سکه", amountPrompt("نیم‌سکه")),
				numeric("QuarterCoin", "ربع‌سکه", amountPrompt("ربع‌سکه")),
				numeric("Gold18", "طلای ۱۸ عیار", amountPrompt("طلای ۱۸ عیار")),
				numeric("Gold24", "طلای ۲۴ عیار", amountPrompt("طلای ۲۴ عیار")),
			},
		},
		{
			Product:       "iphone",
			Script:        "./src/craft/iPhone.py",
			Template:      "./assets/iPhone_TEMPLATE.png",
			OutputPattern: "iPhone_post_%d.png",
			Fields: []Field{
				numeric("IPHONE16PROMAX", "16 Pro Max", amountPrompt("iPhone 16 Pro Max")),
				numeric("IPHONE16PRO", "16 Pro", amountPrompt("iPhone 16 Pro")),
				numeric("IPHONE16NORMAL", "16 Normal", amountPrompt("iPhone 16 Normal")),
				numeric("IPHONE15PROMAX", "15 Pro Max", amountPrompt("iPhone 15 Pro Max")),
				numeric("IPHONE15PRO", "15 Pro", amountPrompt("iPhone 15 Pro")),
				numeric("IPHONE14NORMAL", "14 Normal", amountPrompt("iPhone 14 Normal")),
				numeric("IPHONE13PROMAX", "13 Pro Max", amountPrompt("iPhone 13 Pro Max")),
				numeric("IPHONE13PRO", "13 Pro", amountPrompt("iPhone 13 Pro")),
			},
		},
		{
			Product:       "samsung",
			Script:        "./src/craft/Samsung.py",
			Template:      "./assets/Samsung.png",
			OutputPattern: "Samsung_post_%d.png",
			Fields: []Field{
				numeric("GALAXYS25ULTRA", "Galaxy S25 Ultra", amountPrompt("Galaxy S25 Ultra")),
				numeric("GALAXYS24ULTRA", "Galaxy S24 Ultra", amountPrompt("Galaxy S24 Ultra")),
				// the flag name predates the model it now carries
				numeric("GALAXYS23ULTRA", "Galaxy S25 plus", amountPrompt("Galaxy S25 plus")),
				numeric("GALAXYS24FE", "Galaxy S24 FE", amountPrompt("Galaxy S24 FE")),
				numeric("GALAXYA56", "Galaxy A56", amountPrompt("Galaxy A56")),
				numeric("GALAXYA35", "Galaxy A35", amountPrompt("Galaxy A35")),
				numeric("GALAXYA16", "Galaxy A16", amountPrompt("Galaxy A16")),
				numeric("GALAXYA06", "Galaxy A06", amountPrompt("Galaxy A06")),
			},
		},
		{
			Product:  "xiaomi",
			Script:   "./src/craft/xiaomi.py",
			Template: "./assets/xiaomi.png",
			Fields: []Field{
				numeric("REDMINOTE14", "Redmi Note 14", amountPrompt("Redmi Note 14")),
				numeric("REDMINOTE13", "Redmi Note 13", amountPrompt("Redmi Note 13")),
				numeric("XIAOMIXIAOMI14TPRO", "Xiaomi 14T Pro", amountPrompt("Xiaomi 14T Pro")),
				numeric("XIAOMI14T", "Xiaomi 14T", amountPrompt("Xiaomi 14T")),
				numeric("POCOF6PRO", "Poco F6 Pro", amountPrompt("Poco F6 Pro")),
				numeric("POCOX7PRO", "Poco X7 Pro", amountPrompt("Poco X7 Pro")),
				numeric("POCOM6PRO", "Poco M6 Pro", amountPrompt("Poco M6 Pro")),
				hidden(numeric("GALAXYA06", "Galaxy A06", amountPrompt("Galaxy A06"))),
			},
		},
		{
			Product:       "car",
			Template:      "./assets/CAR1_TEMPLATE.png",
			OutputPattern: "car1_post_%d.png",
			Fields: []Field{
				withScript(numeric("List1", "لیست", amountPrompt("لیست")), "prices", "./src/craft/car1.py"),
				hidden(withScript(numeric("List2", "لیست دوم", amountPrompt("لیست دوم")), "prices", "./src/craft/car2.py")),
			},
		},
		{
			Product:       "screenshot",
			Script:        "./src/craft/screenshot.py",
			Template:      "./assets/SCREENSHOT_TEMPLATE.png",
			OutputPattern: "screenshot_image_%d.png",
			Fields:        newsFields(Field{Name: "source", Flag: "source_text", Kind: KindText, Prompt: "لطفا منبع را ارسال کنید", Label: "منبع ❌", FilledLabel: "منبع ✅"}),
		},
		{
			Product:       "breakingnews",
			Script:        "./src/craft/BreakingNews.py",
			Template:      "./assets/BreakingNewsTemplate.jpg",
			OutputPattern: "generated_breakingnews_image_%d.png",
			Fields:        newsFields(hidden(Field{Name: "Events", Flag: "events_text", Kind: KindText, Prompt: "لطفا رویداد را ارسال کنید", Label: "رویداد ❌", FilledLabel: "رویداد ✅"})),
		},
	}
}

// newsFields are the photo and headline fields shared by the news layouts.
func newsFields(last Field) []Field {
	return []Field{
		{Name: "Image", Flag: "user_image_path", Kind: KindPhoto, Prompt: "عکس پست را ارسال کنید", Label: "عکس ❌", FilledLabel: "عکس ✅", Default: DefaultPhoto},
		{Name: "Overline", Flag: "overline_text", Kind: KindText, Prompt: "روتیتر خبر را ارسال کنید", Label: "روتیتر ❌", FilledLabel: "روتیتر ✅", Default: " "},
		{Name: "MainHeadline", Flag: "main_headline_text", Kind: KindText, Prompt: "تیتر خبر را ارسال کنید", Label: "تیتر ❌", FilledLabel: "تیتر ✅", Default: " "},
		last,
	}
}

func hidden(f Field) Field {
	f.Hidden = true
	return f
}

func withScript(f Field, flag, script string) Field {
	f.Flag = flag
	f.Script = script
	return f
}
