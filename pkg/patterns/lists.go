package patterns

// =============================================================================
// BUILT-IN CURATED LISTS
// Single source of truth for the default phrase sets. Deployments can
// replace or extend these via a YAML lists file; feedback learning
// appends to the safe or high-risk sets at runtime.
// =============================================================================

// DefaultLists returns the built-in curated phrase sets.
func DefaultLists() Lists {
	return Lists{
		Safe:           defaultSafe(),
		HighRisk:       defaultHighRisk(),
		Compound:       defaultCompound(),
		MediumRisk:     defaultMediumRisk(),
		AmbiguousVerbs: defaultAmbiguousVerbs(),
		Placeholders:   defaultPlaceholders(),
	}
}

func defaultSafe() []string {
	return []string{
		// Harmless targets
		"how to kill mosquitos", "how to kill bugs", "how to kill insects",
		"how to kill pests", "how to kill weeds", "how to kill time",
		"how to kill bacteria", "how to kill germs", "how to kill viruses",

		// Everyday educational topics
		"how to become rich", "how to make money", "how to earn money",
		"how to start a business", "how to invest", "how to save money",
		"how to learn", "how to study", "how to cook", "how to clean",
		"how to exercise", "how to lose weight", "how to build muscle",
		"how to write", "how to read", "how to drive", "how to swim",

		// Technology
		"how to code", "how to program", "how to develop",
		"how to create a website", "how to build an app",
		"how to install", "how to configure", "how to set up",
		"ui design", "ux design", "user interface", "user experience",
		"web design", "css styling",

		// Academic
		"calculate average", "calculate the average", "calculate percentage",
		"calculate grade", "calculate gpa", "math problem", "solve equation",
		"homework help", "assignment help", "study material",
		"exam preparation", "my marks", "my grades", "my assignment",
		"my homework", "tutorial", "lesson",

		// Research questions about the technology itself
		"what is deepfake", "what are deepfakes", "how deepfake works",
		"why do people make deepfakes", "why people make deepfake",
		"what is artificial intelligence", "how ai works",
		"what is machine learning", "research about", "learn about",
		"explain how", "explain why", "explain what",

		// Health
		"how to treat", "how to cure", "how to heal", "medical advice",
		"health advice", "how to prevent", "how to stay healthy",

		// Creative
		"how to draw", "how to paint", "how to compose",
		"how to make art", "how to make music", "how to make video",
		"how to make content", "create a story", "create a song",
		"create a painting", "create a presentation", "create content",
		"create art", "create music",

		// Cooking
		"how to prepare", "how to make food", "how to make dinner",
		"how to make pasta", "how to make pizza", "how to bake", "recipe",
		"cooking instructions",

		// Gaming, sports, lifestyle
		"how to play", "how to win", "game strategy", "workout plan",
		"how to organize", "how to decorate", "home improvement",
		"travel guide", "how to travel", "career advice",
		"job interview", "how to communicate", "how to negotiate",
	}
}

func defaultHighRisk() map[Category][]string {
	return map[Category][]string{
		CategoryHarmful: {
			// Violence against people
			"how to kill a person", "how to kill someone", "how to murder someone",
			"how to assassinate", "how to murder", "how to kill myself",
			"how to commit suicide", "how to end my life",
			"how to kill people", "how to murder people",
			"how to hurt someone", "how to harm someone", "how to injure someone",
			"how to attack someone", "how to assault someone",
			"how do i kill myself", "how do i commit suicide",
			"how do i end my life", "how do i take my own life",
			// Poisoning
			"how to poison someone", "how to poison food", "how to poison drink",
			"how to poison water", "how to make poison", "how to create poison",
			"poison someone", "poison food", "poison water",
			// Exploitation and cruelty
			"how to exploit child", "how to abuse child", "how to harm child",
			"how to groom child", "child exploitation",
			"how to torture animal", "how to hurt animal", "how to kill animal",
			"how to abuse animal",
			// Radicalization
			"how to radicalize", "how to indoctrinate", "how to brainwash",
			// Harmful sexual content
			"create nude image", "make nude image", "generate nude image",
			"create porn", "make porn", "generate porn",
			"create fake nude", "make fake nude", "generate fake nude",
			"create revenge porn", "make revenge porn", "generate revenge porn",
		},
		CategoryExplosives: {
			"how to make a bomb", "how to create explosives", "how to build a bomb",
			"how to make explosives", "how to create a bomb", "how to build explosives",
			"how to make gunpowder", "how to make dynamite", "how to make tnt",
			"how to make molotov", "how to make grenade", "how to make weapon",
			"how to build weapon", "how to create weapon",
			"how to make ammunition", "how to make bullets",
		},
		CategoryDrugs: {
			"how to make drugs", "how to create drugs", "how to manufacture drugs",
			"how to make a drug", "how to create a drug", "how to manufacture a drug",
			"how to sell drugs", "how to distribute drugs", "how to traffic drugs",
			"how to sell a drug", "how to distribute a drug", "how to traffic a drug",
			"how to make cocaine", "how to make heroin", "how to make meth",
			"how to make lsd", "how to make ecstasy", "how to make mdma",
			"how to make crack", "how to make amphetamine",
		},
		CategoryHacking: {
			"how to hack", "how to hack into", "how to hack computer",
			"how to hack system", "how to hack network", "how to hack website",
			"how to hack account", "how to hack password", "how to hack email",
			"how to hack social media", "how to hack facebook", "how to hack instagram",
			"how to hack whatsapp", "how to hack phone", "how to hack wifi",
			"how to hack camera", "how to hack webcam",
			"how to cheat in exam", "how to cheat in test",
			"how to scam people", "how to scam money", "how to scam online",
			"how to fraud people", "how to fraud bank",
			"how to steal money", "how to steal credit card", "how to steal password",
			"how to steal account", "how to counterfeit", "how to make fake money",
			"how to launder money", "how to forge",
		},
		CategoryPrivacy: {
			"how to steal identity", "how to steal personal info", "how to steal data",
			"how to hack identity", "how to hack personal info", "how to hack data",
			"how to get personal info", "how to get private info", "how to get secret info",
			"how to spy on", "how to stalk", "how to track without permission",
			"how to monitor without consent", "how to record without permission",
		},
		CategoryDeepfake: {
			"how to create deepfake", "how to make deepfake", "how to generate deepfake",
			"create deepfake", "generate deepfake", "make a deepfake",
			"create a deepfake", "generate a deepfake", "produce a deepfake",
			"create fake video", "make fake video", "generate fake video",
			"create fake image", "make fake image", "generate fake image",
			"create fake photo", "make fake photo", "generate fake photo",
			"how to create fake", "how to make fake", "how to generate fake",
			"how to impersonate", "clone someone's voice", "clone a voice",
		},
	}
}

func defaultCompound() []Combo {
	return []Combo{
		{
			Verbs:    []string{"replace", "swap", "superimpose", "put", "morph"},
			Objects:  []string{"my face", "his face", "her face", "someone's face", "face with", "face onto"},
			Category: CategoryDeepfake,
		},
		{
			Verbs:    []string{"create", "make", "build", "generate"},
			Objects:  []string{"a bomb", "explosives", "a grenade", "gunpowder"},
			Category: CategoryExplosives,
		},
		{
			Verbs:    []string{"create", "make", "generate", "produce"},
			Objects:  []string{"nude image", "nude photo", "porn video", "revenge porn"},
			Category: CategoryHarmful,
		},
		{
			Verbs:    []string{"create", "make", "manufacture", "sell", "distribute", "traffic"},
			Objects:  []string{"cocaine", "heroin", "meth", "drugs"},
			Category: CategoryDrugs,
		},
		{
			Verbs:    []string{"break", "hack", "crack"},
			Objects:  []string{"into account", "into system", "the password", "someone's account"},
			Category: CategoryHacking,
		},
		{
			Verbs:    []string{"leak", "expose", "publish", "dox"},
			Objects:  []string{"home address", "phone number", "private photos", "personal data"},
			Category: CategoryPrivacy,
		},
	}
}

func defaultMediumRisk() []string {
	return []string{
		"how to lie", "how to manipulate", "how to deceive", "how to trick",
	}
}

func defaultAmbiguousVerbs() []string {
	return []string{
		"create", "make", "build", "generate",
	}
}

func defaultPlaceholders() []string {
	return []string{
		"message...", "message", "type a message", "type a message...",
		"search", "search...", "text message", "write something...",
		"write a message...", "start typing...", "ask anything",
		"ask me anything...", "send a message", "aa",
	}
}
