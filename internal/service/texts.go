package service

import "fmt"

// User-facing messages.
const (
	TextQuotaExceeded = "🤖「本日の無料相談回数を超えました！\n" +
		"次の相談は **明日 0:00 以降** に送信できます。⏳\n\n" +
		"また明日お話ししましょう！」"

	TextSubscriptionExpiredNoLink = "🤖「サブスクの有効期限が切れました。\n" +
		"引き続き無制限で相談するには、「サブスク」と送信して再登録をお願いします！✨」"

	TextAIError = "申し訳ありません。エラーが発生しました。"

	TextSubscriptionActivated = "🎉 決済が完了しました！\n\n" +
		"これより無制限で相談可能です。\n" +
		"ご利用ありがとうございます。✨\n\n" +
		"💡 サブスクリプションの有効期限が近づいた際は、\n" +
		"自動的にお知らせいたします。"

	TextSubscriptionCancelled = "📢 サブスクリプションが終了しました。\n\n" +
		"これより無料プランとなり、\n" +
		"1日1回までの相談制限が適用されます。"

	NameNoteFormat = "相談者の名前は「%s」です。親しみを込めて呼びかけてください。"

	SummaryNoteFormat = "これまでの会話の要約:\n%s"

	summarizePrompt = "以下の会話を要約してください。重要なポイントを簡潔にまとめ、\n" +
		"後で文脈を理解できるようにしてください：\n\n%s"

	combinePrompt = "以下の複数の要約を1つの簡潔な要約に統合してください。\n" +
		"重要なポイントを保持しながら、冗長な情報は省いてください：\n\n%s"
)

func subscriptionExpiredText(checkoutURL string) string {
	return fmt.Sprintf("🤖「サブスクの有効期限が切れました。引き続き無制限で相談するには、再登録をお願いします！✨\n"+
		"👉【再登録はこちら】%s」", checkoutURL)
}
