package payment

import "strings"

var InstructionMap = map[Method][]string{
	MethodPix: {
		"Abra o aplicativo do seu banco e escolha a opção Pix",
		"Escaneie o QR Code ou use o Pix Copia e Cola",
		"Confira o valor de {{amount}} e confirme o pagamento",
		"Seus ingressos serão liberados assim que o pagamento for confirmado",
	},

	MethodBoleto: {
		"Clique em \"Ver boleto\" para abrir o documento",
		"Pague {{amount}} no internet banking, app do banco ou casa lotérica até {{due_date}}",
		"A compensação pode levar até 2 dias úteis",
		"Você receberá seus ingressos por e-mail após a confirmação",
	},

	MethodCreditCard: {
		"Pagamento {{payment_id}} registrado com status {{status}}",
		"Acompanhe a confirmação na área Meus Pedidos",
		"A cobrança de {{amount}} aparecerá na fatura do cartão",
	},

	MethodDebitCard: {
		"Pagamento {{payment_id}} registrado com status {{status}}",
		"O valor de {{amount}} será debitado da sua conta",
	},

	MethodTransfer: {
		"Pagamento {{payment_id}} registrado com status {{status}}",
		"Transfira {{amount}} conforme os dados enviados por e-mail",
	},
}

func GetInstructions(method Method) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}

	return []string{
		"Siga as instruções de pagamento exibidas nesta página",
	}
}

type InstructionVars map[string]string

func InjectVariables(
	steps []string,
	vars InstructionVars,
) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(
				updated,
				"{{"+key+"}}",
				value,
			)
		}
		result = append(result, updated)
	}

	return result
}
