package catalog

const (
	catFleaTick    = "Antipulgas e Carrapatos"
	catDewormer    = "Vermífugo"
	catAntiInflam  = "Anti-inflamatório"
	catDermatology = "Dermatológico / Antialérgico"
	catAntibiotic  = "Antibiótico"
	dogs           = "Cães"
	cats           = "Gatos"
	dogsAndCats    = "Cães e Gatos"
	allSizes       = "Todos os portes"
	singleDose     = "Dose única"
	zoetis         = "Zoetis"
	boehringer     = "Boehringer Ingelheim"
	elanco         = "Elanco"
	agener         = "Agener União Química"
)

func entry(term, manufacturer, category, species, efficacy string) Entry {
	return Entry{
		Term: term,
		Metadata: Metadata{
			Manufacturer:   manufacturer,
			Category:       category,
			TargetSpecies:  species,
			SizeClass:      allSizes,
			EfficacyWindow: efficacy,
		},
	}
}

var defaultEntries = []Entry{
	entry("Simparic", zoetis, catFleaTick, dogs, "35 dias"),
	entry("Revolution", zoetis, catFleaTick, dogsAndCats, "30 dias"),
	entry("NexGard", boehringer, catFleaTick, dogs, "30 dias"),
	entry("NexGard Spectra", boehringer, catFleaTick, dogs, "30 dias"),
	entry("NexGard Combo", boehringer, catFleaTick, cats, "30 dias"),
	entry("Bravecto", "MSD Saúde Animal", catFleaTick, dogsAndCats, "90 dias"),
	entry("Frontline", boehringer, catFleaTick, dogsAndCats, "30 dias"),
	entry("Advocate", elanco, catFleaTick, dogsAndCats, "30 dias"),

	entry("Drontal", elanco, catDewormer, dogsAndCats, singleDose),
	entry("Milbemax", elanco, catDewormer, dogsAndCats, singleDose),
	entry("Vermivet", agener, catDewormer, dogsAndCats, singleDose),

	entry("Rimadyl", zoetis, catAntiInflam, dogs, "12-24 horas"),
	entry("Onsior", elanco, catAntiInflam, dogsAndCats, "24 horas"),
	entry("Maxicam", "Ourofino Saúde Animal", catAntiInflam, dogs, "24 horas"),
	entry("Carproflan", agener, catAntiInflam, dogs, "24 horas"),
	entry("Previcox", boehringer, catAntiInflam, dogs, "24 horas"),

	entry("Apoquel", zoetis, catDermatology, dogs, "12 horas"),
	entry("Zenrelia", elanco, catDermatology, dogs, "24 horas"),

	entry("Synulox", zoetis, catAntibiotic, dogsAndCats, "12 horas"),
	entry("Baytril", elanco, catAntibiotic, dogsAndCats, "24 horas"),
}

// Default returns the built-in veterinary medication catalog.
func Default() *Catalog {
	return New(defaultEntries)
}
