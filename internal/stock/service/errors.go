package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("introuvable")
	ErrInvalidQuantity      = errors.New("quantité invalide")
	ErrInvalidDirection     = errors.New("sens de mouvement invalide")
	ErrMissingReason        = errors.New("motif obligatoire")
	ErrInsufficientStock    = errors.New("stock insuffisant")
	ErrConcurrentUpdate     = errors.New("article modifié simultanément, veuillez réessayer")
	ErrAlreadyReversed      = errors.New("mouvement déjà annulé")
	ErrCannotReverse        = errors.New("une annulation ne peut pas être annulée")
	ErrSessionNotInProgress = errors.New("la session d'inventaire n'est pas en cours")
	ErrSessionNotClosed     = errors.New("la session d'inventaire n'est pas clôturée")
	ErrNotAllCounted        = errors.New("tous les articles n'ont pas été comptés")
	ErrStockDrifted         = errors.New("le stock a changé depuis le comptage")
	ErrEmptySession         = errors.New("aucun article à inventorier")
	ErrOrderNotDraft        = errors.New("la commande n'est pas en brouillon")
	ErrInvalidTransition    = errors.New("changement de statut non autorisé")
	ErrMissingSupplierEmail = errors.New("le fournisseur n'a pas d'adresse email")
	ErrSupplierNotPlanned   = errors.New("aucun article à commander pour ce fournisseur")
	ErrNoSupplier           = errors.New("aucun fournisseur actif pour cet article")
	ErrNothingToOrder       = errors.New("aucun article à commander")
	ErrLocked               = errors.New("opération déjà en cours, veuillez réessayer")
	ErrMailNotConfigured    = errors.New("envoi d'email non configuré")
	ErrStorageNotConfigured = errors.New("stockage des rapports non configuré")
)

// NotAllCountedError closure refused while lines are still uncounted
type NotAllCountedError struct {
	Remaining int
}

func (e *NotAllCountedError) Error() string {
	return fmt.Sprintf("%s (%d restant(s))", ErrNotAllCounted.Error(), e.Remaining)
}

func (e *NotAllCountedError) Unwrap() error { return ErrNotAllCounted }

// StockDriftError validation refused because live stock moved after the count
type StockDriftError struct {
	References []string
}

func (e *StockDriftError) Error() string {
	return fmt.Sprintf("%s : %s", ErrStockDrifted.Error(), strings.Join(e.References, ", "))
}

func (e *StockDriftError) Unwrap() error { return ErrStockDrifted }
