/*
Package dsl provides a fluent builder for constructing form definitions in
Go code, as an alternative to loading YAML documents. It is primarily used
for embedding forms in applications and for tests.

	form := dsl.NewForm("onboarding", "Onboarding").
		Email("q_email", "What's your work email?").Required().AuthIdentifier().Next("q_phone").
		Phone("q_phone", "And your phone?").Required().AuthIdentifier().Next("q_team").
		Choice("q_team", "Which team?", "eng", "sales").
		Route(dsl.Eq("q_team", "eng"), "q_stack").Default("q_done").
		ShortText("q_done", "Anything else?").End().
		Build()
*/
package dsl
