package service

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys for user-facing summaries
const (
	msgOrdersCreated  = "%d orders created"
	msgDiscrepancies  = "%d articles with discrepancies"
	msgCorrections    = "%d corrections applied"
	msgCountsRecorded = "%d counts recorded"
	msgOrdersFailed   = "%d suppliers failed"
)

func init() {
	set := func(key string, one, other string) {
		if err := message.Set(language.French, key,
			plural.Selectf(1, "%d",
				plural.One, one,
				plural.Other, other,
			)); err != nil {
			panic(err)
		}
	}
	set(msgOrdersCreated, "%d commande créée", "%d commandes créées")
	set(msgDiscrepancies, "%d article avec écart", "%d articles avec écarts")
	set(msgCorrections, "%d correction appliquée", "%d corrections appliquées")
	set(msgCountsRecorded, "%d comptage enregistré", "%d comptages enregistrés")
	set(msgOrdersFailed, "%d fournisseur en échec", "%d fournisseurs en échec")
}

var printer = message.NewPrinter(language.French)

// summary renders a pluralised French message
func summary(key string, n int) string {
	return printer.Sprintf(key, n)
}
