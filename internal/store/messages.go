package store

// User-facing messages, in the app's language (pt-BR).
const (
	MsgDuplicateGame      = "Este jogo já está na sua lista."
	MsgSteamLinkFailed    = "Não foi possível vincular a conta Steam."
	MsgInvalidSteamID     = "O Steam ID deve ter exatamente 17 dígitos."
	MsgSteamNotLinked     = "Vincule uma conta Steam antes de sincronizar."
	MsgSyncInProgress     = "A sincronização já está em andamento."
	MsgNoProfile          = "Nenhum perfil carregado."
	MsgCredentialsMissing = "Informe e-mail e senha."
	MsgInvalidUsername    = "O nome de usuário deve ter de 3 a 30 caracteres: letras, números, _ . ou -."
	MsgConfirmEmail       = "Cadastro realizado! Confirme seu e-mail para entrar."
	MsgInvalidStatus      = "Status inválido."
	MsgInvalidPlatform    = "Plataforma inválida."
	MsgMissingGame        = "Selecione um jogo."
	MsgNotSignedIn        = "Você precisa estar logado."
)
