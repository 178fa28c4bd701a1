package keywords

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table holds the vocabulary data driving extraction. The built-in defaults
// below are tuned for Canadian federal government prose; a YAML file with the
// same shape can replace any of the three lists at startup.
type Table struct {
	// Stopwords are removed outright. Includes institutional boilerplate
	// ("government", "minister", "act", "bill") that appears in nearly every
	// record and carries no discriminating power.
	Stopwords []string `yaml:"stopwords"`

	// Important are policy-domain terms that get a tagged duplicate token,
	// boosting their weight in set-overlap scoring.
	Important []string `yaml:"important"`

	// Departments maps a canonical department key to its alias substrings.
	Departments map[string][]string `yaml:"departments"`
}

// LoadTable reads a vocabulary table from a YAML file. Empty lists in the
// file fall back to the built-in defaults.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read keyword table: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse keyword table: %w", err)
	}

	def := DefaultTable()
	if len(t.Stopwords) == 0 {
		t.Stopwords = def.Stopwords
	}
	if len(t.Important) == 0 {
		t.Important = def.Important
	}
	if len(t.Departments) == 0 {
		t.Departments = def.Departments
	}
	return t, nil
}

// DefaultTable returns the built-in vocabulary
func DefaultTable() Table {
	return Table{
		Stopwords: []string{
			// general English
			"the", "and", "for", "that", "with", "this", "from", "are", "was",
			"were", "has", "have", "had", "not", "but", "all", "any", "can",
			"its", "our", "their", "they", "them", "who", "whom", "what",
			"when", "where", "which", "while", "would", "could", "should",
			"may", "might", "must", "shall", "will", "been", "being", "than",
			"then", "there", "these", "those", "into", "onto", "over", "under",
			"about", "after", "before", "between", "during", "through", "per",
			"via", "such", "other", "more", "most", "some", "also", "each",
			"both", "upon", "within", "without", "including", "how", "out",
			"you", "your", "his", "her", "she", "him", "one", "two", "use",
			"used", "using", "make", "made", "take", "taken", "well",
			// institutional boilerplate, uninformative for discrimination
			"government", "canada", "canadian", "canadians", "federal",
			"minister", "ministers", "ministry", "department", "departments",
			"act", "acts", "bill", "bills", "said", "announced", "announces",
			"announcement", "today", "new", "support", "supports",
			"supporting", "provide", "provides", "providing", "ensure",
			"ensures", "ensuring", "continue", "continues", "continuing",
			"commitment", "committed", "commit", "measures", "measure",
			"program", "programs", "national", "country", "people", "work",
			"working", "help", "helping", "year", "years", "including",
			"honourable", "secretary", "parliamentary", "parliament",
		},
		Important: []string{
			"health", "healthcare", "pharmacare", "dental", "mental",
			"housing", "homelessness", "rent", "mortgage",
			"climate", "carbon", "emissions", "environment", "environmental",
			"economy", "economic", "inflation", "affordability",
			"indigenous", "reconciliation", "treaty", "metis", "inuit",
			"firstnations", "jordan",
			"immigration", "refugees", "asylum", "citizenship",
			"defence", "defense", "military", "nato", "veterans",
			"tax", "taxes", "taxation",
			"childcare", "seniors", "pension", "pensions", "disability",
			"poverty", "welfare", "employment", "jobs", "workers", "wages",
			"education", "students", "research", "innovation", "science",
			"energy", "electricity", "pipeline", "nuclear", "renewable",
			"infrastructure", "transit", "broadband", "water",
			"agriculture", "farmers", "fisheries", "forestry",
			"justice", "crime", "firearms", "guns", "policing",
			"trade", "tariffs", "languages", "culture", "arts",
			"privacy", "cybersecurity", "artificial", "intelligence",
		},
		Departments: map[string][]string{
			"health":            {"health canada", "public health", "health agency"},
			"finance":           {"finance", "revenue agency", "cra"},
			"environment":       {"environment", "climate change canada", "parks canada"},
			"housing":           {"housing", "infrastructure and communities", "cmhc"},
			"indigenous":        {"indigenous services", "crown-indigenous", "northern affairs"},
			"immigration":       {"immigration", "refugees and citizenship", "ircc"},
			"defence":           {"national defence", "armed forces", "dnd"},
			"justice":           {"justice", "attorney general", "public prosecution"},
			"employment":        {"employment and social development", "labour", "esdc"},
			"global-affairs":    {"global affairs", "foreign affairs", "international trade", "international development"},
			"transport":         {"transport", "transportation"},
			"natural-resources": {"natural resources", "energy and natural resources"},
			"public-safety":     {"public safety", "emergency preparedness", "border services", "rcmp"},
			"agriculture":       {"agriculture", "agri-food"},
			"fisheries":         {"fisheries", "oceans", "coast guard"},
			"heritage":          {"canadian heritage", "official languages"},
			"innovation":        {"innovation, science", "industry canada", "ised"},
			"veterans":          {"veterans affairs"},
			"treasury":          {"treasury board"},
			"seniors":           {"seniors"},
		},
	}
}
