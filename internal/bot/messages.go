package bot

import (
	"fmt"
	"strings"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// Тексты ответов (бот для вьетнамской аудитории)
const (
	textWelcome = "👋 Xin chào, %s!\n\n" +
		"🔑 Kích hoạt: `/redeem <KEY>`\n" +
		"📊 Phân tích: `/md5 <chuỗi_md5>`\n" +
		"ℹ️ Trạng thái: `/status`"

	textFallback      = "ℹ️ Dùng lệnh: `/md5 <chuỗi_md5>`"
	textInternalError = "⚠️ Lỗi hệ thống, vui lòng thử lại sau."

	textGenKeyUsage = "Dùng: `/genkey [1-%d]`"

	textRedeemUsage = "Dùng: `/redeem <KEY>`"
	textKeyNotFound = "❌ Key không tồn tại"
	textKeyUsed     = "❌ Key đã được sử dụng"
	textActivated   = "✅ *KÍCH HOẠT THÀNH CÔNG*"

	textLocked       = "🔒 Chưa kích hoạt. Dùng `/redeem <KEY>`"
	textStatusActive = "✅ Tài khoản đã được kích hoạt."
	textAdminStats   = "\n\n🛠 Key đã tạo: %d\n🔓 Key đã dùng: %d\n👥 Người dùng: %d"

	textMD5Usage   = "Dùng: `/md5 <chuỗi_md5>`"
	textInvalidMD5 = "❌ MD5 không hợp lệ"
)

func labelText(l domain.Label) string {
	if l == domain.LabelTai {
		return "Tài"
	}
	return "Xỉu"
}

func formatResult(res domain.ScoringResult) string {
	return fmt.Sprintf(
		"📊 *PHÂN TÍCH MD5*\n\n"+
			"🔢 `%s`\n"+
			"🎯 *KẾT QUẢ:* *%s*\n"+
			"📈 Độ tin cậy: %s%%\n"+
			"🎲 Điểm: %d\n"+
			"🧠 Logic gốc: %s",
		res.Digest,
		labelText(res.Prediction),
		res.Confidence.StringFixed(2),
		res.Score,
		labelText(res.RawPrediction),
	)
}

func formatKeys(codes []string) string {
	var sb strings.Builder
	if len(codes) == 1 {
		sb.WriteString("🔑 *KEY MỚI*\n")
	} else {
		sb.WriteString(fmt.Sprintf("🔑 *%d KEY MỚI*\n", len(codes)))
	}
	for _, c := range codes {
		// Моноширинный шрифт - копирование по клику
		sb.WriteString("`" + c + "`\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
