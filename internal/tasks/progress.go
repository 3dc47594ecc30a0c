package tasks

import "github.com/desertthunder/ledgerx/internal/models"

const (
	MsgFetchingAccounts     = "fetching accounts"
	MsgFetchingTransactions = "fetching transactions"
	MsgHTMLFallback         = "fetching via HTML fallback"
	MsgSaving               = "saving"
)

func startingUpdate() models.SyncProgress {
	return models.Starting{}
}

func fetchingAccountsUpdate() models.SyncProgress {
	return models.Indeterminate{Message: MsgFetchingAccounts}
}

func fetchingTransactionsUpdate() models.SyncProgress {
	return models.Indeterminate{Message: MsgFetchingTransactions}
}

func fallbackUpdate() models.SyncProgress {
	return models.Indeterminate{Message: MsgHTMLFallback}
}

func savingUpdate() models.SyncProgress {
	return models.Indeterminate{Message: MsgSaving}
}

// transactionUpdate reports determinate progress. Counts past total are not reported.
func transactionUpdate(current, total int) (models.SyncProgress, bool) {
	if total <= 0 || current > total {
		return nil, false
	}
	return models.NewRunning(current, total), true
}
