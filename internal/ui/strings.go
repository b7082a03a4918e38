package ui

import "github.com/breadtm/examtie/internal/prefs"

// UI labels per language. Only the strings the terminal client renders
// itself; exam content arrives already localized from the server.
var labels = map[string]map[string]string{
	prefs.LangEnglish: {
		"loading":       "Loading…",
		"identifier":    "Email or username",
		"password":      "Password",
		"logging_in":    "Signing in…",
		"login_hint":    "enter: sign in · tab: switch field · esc: quit",
		"streak":        "Streak",
		"revives":       "revives used",
		"expiring_soon": "Your session expires within 24 hours.",
		"bookmarks":     "Bookmarked exams",
		"no_bookmarks":  "No bookmarks yet.",
		"saving":        "(saving…)",
		"add_prompt":    "Exam to bookmark:",
		"dash_hint":     "a: add · x: remove · r: reload · t: theme · l: language · o: log out · q: quit",
	},
	prefs.LangThai: {
		"loading":       "กำลังโหลด…",
		"identifier":    "อีเมลหรือชื่อผู้ใช้",
		"password":      "รหัสผ่าน",
		"logging_in":    "กำลังเข้าสู่ระบบ…",
		"login_hint":    "enter: เข้าสู่ระบบ · tab: สลับช่อง · esc: ออก",
		"streak":        "สตรีค",
		"revives":       "ใช้การฟื้นฟู",
		"expiring_soon": "เซสชันของคุณจะหมดอายุภายใน 24 ชั่วโมง",
		"bookmarks":     "ข้อสอบที่บันทึกไว้",
		"no_bookmarks":  "ยังไม่มีบุ๊กมาร์ก",
		"saving":        "(กำลังบันทึก…)",
		"add_prompt":    "ข้อสอบที่จะบันทึก:",
		"dash_hint":     "a: เพิ่ม · x: ลบ · r: โหลดใหม่ · t: ธีม · l: ภาษา · o: ออกจากระบบ · q: ปิด",
	},
}

func (m Model) tr(key string) string {
	if s, ok := labels[m.lang][key]; ok {
		return s
	}
	if s, ok := labels[prefs.LangEnglish][key]; ok {
		return s
	}
	return key
}
