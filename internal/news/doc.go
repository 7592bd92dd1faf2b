// Package news searches the Naver news API for articles about a company.
//
// A search fans out over a few query variants of the company name, removes
// near-duplicate titles, scores each article by keyword relevance and returns
// the best ones. Upstream failures never fail a search; the affected variant
// simply contributes nothing.
//
//	svc := news.NewService(news.FromConfig(cfg.News), logger)
//	items := svc.SearchCompanyNews(ctx, "삼성전자", 3, 20)
//	recent := news.RecentNews(items, 30)
package news
