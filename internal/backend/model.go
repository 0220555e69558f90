package backend

import "ingressos-web/internal/payment"

type methodsResponse struct {
	Success bool                    `json:"success"`
	Methods []payment.EnabledMethod `json:"methods"`
	Error   string                  `json:"error,omitempty"`
}

type installmentsResponse struct {
	Success bool                        `json:"success"`
	Options []payment.InstallmentOption `json:"options"`
	Error   string                      `json:"error,omitempty"`
}
