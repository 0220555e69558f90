package handler

import (
	"ingressos-web/internal/payment"
	"ingressos-web/internal/session"
	"ingressos-web/internal/utils"
)

// cardView never carries the full number or the CCV.
type cardView struct {
	HolderName  string `json:"holder_name"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	HasCCV      bool   `json:"has_ccv"`
}

type formView struct {
	ID                 string                      `json:"id"`
	Amount             string                      `json:"amount"`
	Description        string                      `json:"description"`
	SharedTicket       bool                        `json:"shared_ticket"`
	Payer              payment.PayerInfo           `json:"payer"`
	Method             payment.Method              `json:"billing_type"`
	Card               *cardView                   `json:"card,omitempty"`
	Installments       int                         `json:"installments"`
	InstallmentOptions []payment.InstallmentOption `json:"installment_options"`
	Methods            []payment.EnabledMethod     `json:"methods"`
	Valid              bool                        `json:"valid"`
	Warnings           []string                    `json:"warnings,omitempty"`
	State              string                      `json:"state"`
	InFlight           bool                        `json:"in_flight"`
}

func newFormView(sess *session.Session) formView {
	snap := sess.Form.Snapshot()
	purchase := sess.Orchestrator.Purchase()

	v := formView{
		ID:                 sess.ID,
		Amount:             utils.FormatBRL(purchase.Amount),
		Description:        purchase.Description,
		SharedTicket:       purchase.Context.Shared(),
		Payer:              snap.Payer,
		Method:             snap.Method,
		Installments:       snap.Installments,
		InstallmentOptions: []payment.InstallmentOption{},
		Methods:            sess.Loader.Methods(),
		Valid:              snap.Valid(),
		Warnings:           snap.Warnings(),
		State:              sess.Orchestrator.State().String(),
		InFlight:           sess.Orchestrator.InFlight(),
	}

	// Quotes stay loaded across method switches but are only shown for cards.
	if snap.Method == payment.MethodCreditCard {
		v.InstallmentOptions = sess.Loader.Installments()
		v.Card = &cardView{
			HolderName:  snap.Card.HolderName,
			Number:      snap.MaskedCard(),
			ExpiryMonth: snap.Card.ExpiryMonth,
			ExpiryYear:  snap.Card.ExpiryYear,
			HasCCV:      snap.Card.CCV != "",
		}
	}
	if v.Methods == nil {
		v.Methods = []payment.EnabledMethod{}
	}
	if v.InstallmentOptions == nil {
		v.InstallmentOptions = []payment.InstallmentOption{}
	}
	return v
}
