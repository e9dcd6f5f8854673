package extract

import "regexp"

type synonymEntry struct {
	label    string
	patterns []*regexp.Regexp
}

// synonymTable is consulted in order. Patterns are matched against lower-cased text.
var synonymTable = []synonymEntry{
	{"Delight", compileAll(`delight`, `happy`, `joy`, `pleasure`)},
	{"Anger", compileAll(`anger`, `angry`, `mad`, `furious`)},
	{"Embarrassment", compileAll(`embarrassment`, `embarrassed`, `ashamed`, `shame`)},
	{"Hopeless", compileAll(`hopeless`, `despair`, `desperate`, `no hope`)},
	{"Pride", compileAll(`pride`, `proud`, `accomplish`, `achievement`)},
	{"Disappointment", compileAll(`disappointment`, `disappointed`, `let down`, `dissatisfied`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
