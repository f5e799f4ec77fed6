package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Interface 通知接口：按聊天ID投递文本报警与图表
type Interface interface {
	SendAlert(chatID int64, text string) error
	SendPhoto(chatID int64, image []byte, caption string) error
}

// safePadding 安全地计算填充空格数量，避免负数
func safePadding(content string, totalWidth int) int {
	// 使用utf8.RuneCountInString计算实际显示字符数，而不是字节数
	runeCount := utf8.RuneCountInString(content)
	padding := totalWidth - runeCount - 4
	if padding < 0 {
		padding = 0
	}
	return padding
}

// ConsoleNotifier 控制台通知器（未配置Telegram时的降级输出）
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (cn *ConsoleNotifier) SendAlert(chatID int64, text string) error {
	border := "╔" + strings.Repeat("═", 60) + "╗"
	bottomBorder := "╚" + strings.Repeat("═", 60) + "╝"

	fmt.Println()
	fmt.Println(border)

	header := fmt.Sprintf("🚨 交易信号 [chat %d]", chatID)
	fmt.Printf("║ %s%s ║\n", header, strings.Repeat(" ", safePadding(header, 60)))
	fmt.Println("║" + strings.Repeat(" ", 60) + "║")

	for _, line := range strings.Split(stripHTML(text), "\n") {
		fmt.Printf("║ %s%s ║\n", line, strings.Repeat(" ", safePadding(line, 60)))
	}

	fmt.Println("║" + strings.Repeat(" ", 60) + "║")
	timeStr := fmt.Sprintf("时间: %s", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("║ %s%s ║\n", timeStr, strings.Repeat(" ", safePadding(timeStr, 60)))
	fmt.Println(bottomBorder)
	fmt.Println()
	return nil
}

func (cn *ConsoleNotifier) SendPhoto(chatID int64, image []byte, caption string) error {
	fmt.Printf("📊 [chat %d] 图表已生成 (%d字节): %s\n", chatID, len(image), stripHTML(caption))
	return nil
}

// stripHTML 去掉Telegram HTML标签，控制台输出纯文本即可
func stripHTML(s string) string {
	replacer := strings.NewReplacer(
		"<b>", "", "</b>", "",
		"<i>", "", "</i>", "",
		"<code>", "", "</code>", "",
	)
	return replacer.Replace(s)
}
