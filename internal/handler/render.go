package handler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/service"
)

const separator = "━━━━━━━━━━━━━━━"

var medals = []string{"🥇", "🥈", "🥉"}

var periodNames = map[string]string{
	model.PeriodDaily:   "Diário",
	model.PeriodWeekly:  "Semanal",
	model.PeriodMonthly: "Mensal",
}

func renderProfile(a *model.Account, cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("📊 Perfil\n" + separator + "\n")
	if a.Name != "" {
		fmt.Fprintf(&b, "👤 %s\n", a.Name)
	}
	fmt.Fprintf(&b, "💰 Carteira: %s\n", coins(a.Wallet))
	fmt.Fprintf(&b, "🏦 Banco: %s / %s (nível %d)\n", coins(a.Bank), coins(cat.BankCapacity(a.BankLevel)), a.BankLevel)
	if job, ok := cat.Jobs[a.Job]; ok {
		fmt.Fprintf(&b, "💼 Emprego: %s\n", job.Name)
	}
	fmt.Fprintf(&b, "⚡ Energia: %d\n", a.Energy)
	fmt.Fprintf(&b, "⛏ Picareta: %s\n", renderTool(a.Tools.Pickaxe, cat))
	fmt.Fprintf(&b, "🎣 Vara: %s\n", renderTool(a.Tools.Rod, cat))

	if len(a.Skills) > 0 {
		b.WriteString("📚 Habilidades:")
		for _, k := range catalog.SortedKeys(a.Skills) {
			fmt.Fprintf(&b, " %s %d", k, a.Skill(k).Level)
		}
		b.WriteString("\n")
	}
	writeHoldings(&b, "🪨 Materiais", a.Materials)
	writeHoldings(&b, "🎒 Itens", a.Inventory)
	writeHoldings(&b, "🥕 Ingredientes", a.Ingredients)
	writeHoldings(&b, "🍲 Comidas", a.CookedFood)
	b.WriteString(separator)
	return b.String()
}

func renderTool(t *model.Tool, cat *catalog.Catalog) string {
	if t == nil {
		return "nenhuma"
	}
	name := t.Key
	if it, ok := cat.Shop[t.Key]; ok {
		name = it.Name
	}
	if t.Broken() {
		return fmt.Sprintf("%s (quebrada)", name)
	}
	return fmt.Sprintf("%s (%d/%d)", name, t.Durability, t.MaxDurability)
}

func writeHoldings(b *strings.Builder, title string, m map[string]int64) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%dx %s", m[k], k)
	}
	fmt.Fprintf(b, "%s: %s\n", title, strings.Join(parts, ", "))
}

func renderLeaderboard(entries []service.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "📊 Ainda não há ninguém no ranking."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Ranking TOP %d\n%s\n", len(entries), separator)
	for _, e := range entries {
		rank := fmt.Sprintf("%d.", e.Rank)
		if e.Rank <= len(medals) {
			rank = medals[e.Rank-1]
		}
		name := e.Name
		if name == "" {
			name = "#" + e.ID
		}
		fmt.Fprintf(&b, "%s %s: %s\n", rank, name, coins(e.NetWorth))
	}
	b.WriteString(separator)
	return b.String()
}

func renderPlots(plots []service.PlotView, maxPlots int) string {
	if len(plots) == 0 {
		return fmt.Sprintf("🌱 Nenhuma plantação. Terrenos livres: %d.", maxPlots)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🌾 Fazenda (%d/%d)\n", len(plots), maxPlots)
	for _, p := range plots {
		status := "✅ pronta"
		if !p.Ready {
			status = "⏳ " + remaining(p.Remaining)
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", p.Index+1, p.Name, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderChallenges(list []model.Challenge, now time.Time) string {
	var b strings.Builder
	b.WriteString("🎯 Desafios\n" + separator)
	for _, c := range list {
		state := "em andamento"
		switch {
		case c.Claimed:
			state = "resgatado ✅"
		case c.IsCompleted():
			state = "completo! use /resgatar " + c.Period
		}
		left := time.Duration(c.ResetAt-now.UnixMilli()) * time.Millisecond
		fmt.Fprintf(&b, "\n%s (%s), recompensa %s, renova em %s\n",
			periodNames[c.Period], state, coins(c.Reward), remaining(left))
		for _, t := range c.Tasks {
			mark := "▫️"
			if t.Progress >= t.Target {
				mark = "✔️"
			}
			fmt.Fprintf(&b, "%s %s %d/%d\n", mark, t.Type, t.Progress, t.Target)
		}
	}
	b.WriteString(separator)
	return b.String()
}

func renderListings(listings []model.Listing) string {
	if len(listings) == 0 {
		return "🏪 O mercado está vazio."
	}
	var b strings.Builder
	b.WriteString("🏪 Mercado\n" + separator + "\n")
	for _, l := range listings {
		fmt.Fprintf(&b, "#%d %dx %s por %s (vendedor %s)\n", l.ID, l.Quantity, l.Key, coins(l.Price), l.Seller)
	}
	b.WriteString(separator)
	return b.String()
}

func renderPets(pets []model.Pet) string {
	if len(pets) == 0 {
		return "🐾 Você não tem pets. Use /adotar <espécie> [nome]."
	}
	var b strings.Builder
	b.WriteString("🐾 Seus pets\n")
	for i, p := range pets {
		fmt.Fprintf(&b, "%d. %s (%s) nv %d, exp %d\n   🍖 %d  😊 %d  ❤️ %d/%d  ⚔️ %d  🛡 %d  (%dV/%dD)\n",
			i+1, p.Name, p.Species, p.Level, p.Exp, p.Hunger, p.Mood, p.HP, p.MaxHP, p.Attack, p.Defense, p.Wins, p.Losses)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProperties(views []service.PropertyView) string {
	var b strings.Builder
	b.WriteString("🏘 Propriedades\n")
	for _, v := range views {
		if v.Owned {
			fmt.Fprintf(&b, "✅ %s: +%s/dia, manutenção %s, %d dia(s) a coletar\n", v.Name, coins(v.Income), coins(v.Upkeep), v.PendingDays)
			continue
		}
		fmt.Fprintf(&b, "🔹 %s (%s): %s, +%s/dia\n", v.Name, v.Key, coins(v.Price), coins(v.Income))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderShop(entries []service.ShopEntry) string {
	var b strings.Builder
	b.WriteString("🛒 Loja\n" + separator + "\n")
	for _, e := range entries {
		extra := ""
		switch e.Type {
		case catalog.ItemTool:
			extra = fmt.Sprintf(" tier %d, durabilidade %d", e.Tier, e.Durability)
		case catalog.ItemBoost:
			extra = fmt.Sprintf(" +%.0f%% em %s", e.Boost*100, strings.Join(e.BoostAction, ", "))
		}
		fmt.Fprintf(&b, "%s (%s): %s%s\n", e.Name, e.Key, coins(e.Price), extra)
	}
	b.WriteString(separator + "\nUse /comprar <item> [qtd]")
	return b.String()
}

func renderJobs(cat *catalog.Catalog, current string) string {
	keys := catalog.SortedKeys(cat.Jobs)
	sort.SliceStable(keys, func(i, j int) bool { return cat.Jobs[keys[i]].MinLevel < cat.Jobs[keys[j]].MinLevel })

	var b strings.Builder
	b.WriteString("💼 Empregos\n")
	for _, k := range keys {
		j := cat.Jobs[k]
		mark := "🔹"
		if k == current {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s (%s): %s a %s, nível %d\n", mark, j.Name, k, coins(j.Min), coins(j.Max), j.MinLevel)
	}
	return strings.TrimRight(b.String(), "\n")
}

const helpText = `🎮 Comandos
/perfil - seu perfil
/daily - bônus diário
/trabalhar /minerar /pescar /cacar /explorar /crime
/forjar <receita> - forjar itens
/reparar <picareta|vara> - reparar ferramenta
/loja, /comprar <item> [qtd], /vender <material> [qtd]
/depositar <valor>, /sacar <valor>, /banco_upgrade
/empregos, /emprego <chave>, /demitir
/plantar <semente>, /colher, /fazenda
/cozinhar <receita>, /comer <comida>, /vender_comida <comida> [qtd]
/mercado, /anunciar <item|material> <chave> <qtd> <preço>, /arrematar <id>, /cancelar <id>
/desafios, /resgatar <daily|weekly|monthly>
/adotar <espécie> [nome], /pets, /alimentar [n] [comida], /brincar [n], /batalha
/imoveis, /comprar_imovel <chave>, /coletar
/pagar <valor> (respondendo) - transferir
/top - ranking`
